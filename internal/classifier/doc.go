// Package classifier assigns playlists to a fixed, ordered set of topical categories.
//
// # Taxonomy
//
// A [Taxonomy] is an ordered list of [Category] values, each with lowercase keyword patterns. [Other] is appended
// implicitly: it is a valid category name but has no keywords and never takes part in scoring.
//
// # Scoring
//
// The match text is the lowercased title, a single space and the lowercased description. A category's score is the
// number of its distinct keywords found as substrings of that text. The strictly highest score wins; a tie between
// non-zero scores goes to the category that comes first in taxonomy order; a zero best score yields [Other].
//
// Classification is a pure function of the playlist text and the taxonomy.
package classifier
