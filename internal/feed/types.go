package feed

// Source is a static feed descriptor, defined at configuration time.
// Lower Priority means higher rank in the merged stream.
type Source struct {
	Name     string
	URL      string
	Priority int
}

// Item is one normalized article candidate. Items are rebuilt on every
// fetch cycle; only the title survives a cycle (inside the dedup store).
type Item struct {
	// Title is the dedup key. Items with an empty title are dropped at
	// normalization time.
	Title    string
	Link     string
	Summary  string
	Source   string
	Priority int
	// Published is display-only; kept as the feed's own string.
	Published string
	// ImageURL is empty when the entry carries no usable image.
	ImageURL string
	Tags     []string
}
