package classifier

// DefaultTaxonomy returns the built-in categories in tie-break order.
//
// Short fragments that are substrings of unrelated words ("ai", "app", "rice", "work") are spelled out so substring
// matching stays meaningful.
func DefaultTaxonomy() *Taxonomy {
	return defaultTaxonomy
}

var defaultTaxonomy = MustTaxonomy(
	Category{Name: "Food", Keywords: []string{
		"food", "recipe", "cooking", "cook", "bake", "baking", "kitchen", "pizza", "brownies", "cookies",
		"bread", "curry", "snacks", "dessert", "cuisine", "meal", "chef", "vegetarian", "vegan",
		"indian", "chinese", "italian", "street food",
	}},
	Category{Name: "Career", Keywords: []string{
		"career", "product management", "professional", "business", "workplace", "job", "interview",
		"resume", "skills", "leadership", "management", "entrepreneur", "startup", "productivity",
	}},
	Category{Name: "Investment", Keywords: []string{
		"investment", "investing", "stock", "trading", "finance", "money", "wealth", "portfolio",
		"mutual fund", "crypto", "bitcoin", "stock market", "shares", "dividend", "real estate",
	}},
	Category{Name: "Education", Keywords: []string{
		"learn", "tutorial", "course", "education", "study", "academic", "lesson", "lecture",
		"math", "science", "history", "language", "exam", "university",
	}},
	Category{Name: "Entertainment", Keywords: []string{
		"movie", "music", "song", "comedy", "entertainment", "gaming", "tv show", "series", "drama",
		"funny", "dance", "performance", "trailer", "concert", "anime",
	}},
	Category{Name: "Health & Fitness", Keywords: []string{
		"exercise", "workout", "fitness", "health", "yoga", "gym", "training", "weight loss", "diet",
		"nutrition", "meditation", "wellness", "cardio", "running",
	}},
	Category{Name: "Technology", Keywords: []string{
		"tech", "technology", "software", "apps", "programming", "coding", "computer",
		"artificial intelligence", "machine learning", "data science", "web development", "mobile",
		"developer", "gadget", "linux",
	}},
	Category{Name: "Travel", Keywords: []string{
		"travel", "trip", "vacation", "tourism", "destination", "hotel", "flight", "adventure",
		"explore", "journey", "wanderlust", "backpacking", "road trip",
	}},
	Category{Name: "Lifestyle", Keywords: []string{
		"lifestyle", "fashion", "beauty", "style", "hairstyles", "home", "decor", "personal", "daily",
		"routine", "tips", "life hacks", "vlog", "minimalism",
	}},
)
