package feed

// PromoTemplate is the static copy and styling of one promotional offer.
type PromoTemplate struct {
	Emoji   string
	Title   string
	Content string
	Accent  string // css modifier, see static/style.css
	Font    string
}

// Templates is the fixed set of promotional offers, used cyclically.
var Templates = []PromoTemplate{
	{Emoji: "🚀", Title: "Premium Office Spaces 🏢", Content: "Exclusive deals for tech startups!", Accent: "blue", Font: "playfair"},
	{Emoji: "🌟", Title: "Luxury Apartments 🌆", Content: "Waterfront views & modern amenities", Accent: "rose", Font: "poppins"},
	{Emoji: "💡", Title: "Co-Working Hub 🖥️", Content: "24/7 access • Free coffee • Meeting rooms", Accent: "emerald", Font: "space-mono"},
	{Emoji: "📍", Title: "Retail Spaces 🛍️", Content: "High foot traffic locations available", Accent: "amber", Font: "archivo"},
	{Emoji: "🛡️", Title: "Industrial Warehouses 🏭", Content: "Secure storage solutions", Accent: "stone", Font: "lora"},
}

// PoolSize is the number of distinct slots cycled through before wrapping.
const PoolSize = 10

var slotPool = buildPool(PoolSize)

func buildPool(n int) []Promo {
	pool := make([]Promo, n)
	for i := range pool {
		t := Templates[i%len(Templates)]
		pool[i] = Promo{
			Title:    t.Emoji + " " + t.Title,
			Content:  t.Content,
			Height:   200 + (i*50)%300,
			Template: i % len(Templates),
			Slot:     i,
		}
	}
	return pool
}
