package extract

// Predicates drive the embedded-state scan. Each list names the keys,
// in priority order, accepted for one record field. Keys compare
// case-insensitively with separators ignored, so "sale_price" also
// matches "salePrice". The set is data-driven so a target site can be
// tuned without touching the pipeline.
type Predicates struct {
	TitleKeys         []string
	PriceKeys         []string
	OriginalPriceKeys []string
	CurrencyKeys      []string

	SellerMarkerKeys []string
	SellerHandleKeys []string
	SellerNameKeys   []string
	SellerURLKeys    []string

	ImageKeys []string

	VideoURLKeys []string
	LikeKeys     []string
	CommentKeys  []string

	ProductIDKeys []string
}

// DefaultPredicates returns the key vocabulary observed across common
// storefront state blobs.
func DefaultPredicates() Predicates {
	return Predicates{
		TitleKeys:         []string{"title", "product_name", "product_title", "item_title", "goods_name", "name"},
		PriceKeys:         []string{"sale_price", "current_price", "price_val", "price_value", "min_price", "price"},
		OriginalPriceKeys: []string{"original_price", "list_price", "market_price", "retail_price"},
		CurrencyKeys:      []string{"currency", "currency_code", "price_currency"},

		SellerMarkerKeys: []string{"seller_name", "shop_name", "nickname", "seller_id", "shop_id", "seller_handle"},
		SellerHandleKeys: []string{"seller_handle", "nickname", "shop_slug", "username", "handle"},
		SellerNameKeys:   []string{"seller_name", "shop_name", "name"},
		SellerURLKeys:    []string{"shop_url", "seller_url", "url"},

		ImageKeys: []string{"image_url", "images", "image", "cover_url", "cover", "thumbnail", "thumb_url", "main_image", "pic_url"},

		VideoURLKeys: []string{"video_url", "play_url", "video"},
		LikeKeys:     []string{"likes", "like_count", "digg_count"},
		CommentKeys:  []string{"comments", "comment_count"},

		ProductIDKeys: []string{"product_id", "item_id", "goods_id", "sku_id", "spu_id"},
	}
}

func (p Predicates) withDefaults() Predicates {
	def := DefaultPredicates()
	if len(p.TitleKeys) == 0 {
		p.TitleKeys = def.TitleKeys
	}
	if len(p.PriceKeys) == 0 {
		p.PriceKeys = def.PriceKeys
	}
	if len(p.OriginalPriceKeys) == 0 {
		p.OriginalPriceKeys = def.OriginalPriceKeys
	}
	if len(p.CurrencyKeys) == 0 {
		p.CurrencyKeys = def.CurrencyKeys
	}
	if len(p.SellerMarkerKeys) == 0 {
		p.SellerMarkerKeys = def.SellerMarkerKeys
	}
	if len(p.SellerHandleKeys) == 0 {
		p.SellerHandleKeys = def.SellerHandleKeys
	}
	if len(p.SellerNameKeys) == 0 {
		p.SellerNameKeys = def.SellerNameKeys
	}
	if len(p.SellerURLKeys) == 0 {
		p.SellerURLKeys = def.SellerURLKeys
	}
	if len(p.ImageKeys) == 0 {
		p.ImageKeys = def.ImageKeys
	}
	if len(p.VideoURLKeys) == 0 {
		p.VideoURLKeys = def.VideoURLKeys
	}
	if len(p.LikeKeys) == 0 {
		p.LikeKeys = def.LikeKeys
	}
	if len(p.CommentKeys) == 0 {
		p.CommentKeys = def.CommentKeys
	}
	if len(p.ProductIDKeys) == 0 {
		p.ProductIDKeys = def.ProductIDKeys
	}
	return p
}
