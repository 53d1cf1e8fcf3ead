package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// CategoryList prints the taxonomy in tie-break order.
func (r *Runner) CategoryList(ctx context.Context, cmd *cli.Command) error {
	tax := classifier.DefaultTaxonomy()
	if r.organizer != nil {
		tax = r.organizer.Taxonomy()
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"categories": tax.Categories(),
			"fallback":   classifier.Other,
		}, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Categories")
	for i, c := range tax.Categories() {
		r.writePlain("%d. %s\n   %s\n", i+1, c.Name, strings.Join(c.Keywords, ", "))
	}
	return r.writePlain("%d. %s (no keywords matched)\n", len(tax.Categories())+1, classifier.Other)
}

// CategoryOverrides prints the local user's manual categories.
func (r *Runner) CategoryOverrides(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}

	byID, err := r.store.List(ctx, shared.LocalUser)
	if err != nil {
		return err
	}
	list := make([]models.Override, 0, len(byID))
	for _, o := range byID {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PlaylistID < list[j].PlaylistID })

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	if len(list) == 0 {
		return r.writePlain("No manual categories.\n")
	}
	for _, o := range list {
		r.writePlain("%-36s %-16s %s\n", o.PlaylistID, o.Category, humanize.Time(o.UpdatedAt))
	}
	return nil
}

// CategorySet stores a manual category for a playlist. Without --category a terminal session picks from a list.
func (r *Runner) CategorySet(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}

	id := strings.TrimSpace(cmd.String("id"))
	category := cmd.String("category")
	if category == "" {
		if !r.interactive {
			return fmt.Errorf("%w: --category", shared.ErrMissingArgument)
		}
		picked, err := r.pickCategory(id)
		if err != nil {
			return err
		}
		category = picked
	}

	o, err := r.organizer.SetCategory(ctx, shared.LocalUser, id, category)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(o, cmd.Bool("pretty"))
	}
	return r.writePlain("✓ %s is now %s (manual)\n", o.PlaylistID, o.Category)
}

func (r *Runner) pickCategory(playlistID string) (string, error) {
	names := r.organizer.Taxonomy().Names()
	options := make([]huh.Option[string], len(names))
	for i, name := range names {
		options[i] = huh.NewOption(name, name)
	}

	var category string
	err := huh.NewSelect[string]().
		Title(fmt.Sprintf("Category for %s", playlistID)).
		Options(options...).
		Value(&category).
		Run()
	if err != nil {
		return "", err
	}
	return category, nil
}

// CategoryClear removes a playlist's manual category so the classifier decides again.
func (r *Runner) CategoryClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}

	id := strings.TrimSpace(cmd.String("id"))
	cleared, err := r.organizer.ClearCategory(ctx, shared.LocalUser, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"playlist_id": id, "cleared": cleared}, cmd.Bool("pretty"))
	}
	if !cleared {
		return r.writePlain("%s has no manual category\n", id)
	}
	return r.writePlain("✓ %s will be categorized automatically\n", id)
}
