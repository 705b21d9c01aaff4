package brief

import "strings"

// Canonical product types. Clarify is listed for completeness but Canonicalize never returns it.
const (
	ProductPoster      = "poster"
	ProductTShirt      = "tshirt"
	ProductMug         = "mug"
	ProductBook        = "book"
	ProductEbook       = "ebook"
	ProductAudiobook   = "audiobook"
	Product3DModel     = "3d_model"
	Product3DPrintable = "3d_printable"
	ProductNFT         = "nft"
	ProductSticker     = "sticker"
	ProductMockup      = "mockup"
	ProductBundle      = "bundle"
	ProductOther       = "other"
	ProductClarify     = "clarify"
)

// ProductTypes is the closed enumeration a brief's product_type is drawn from.
var ProductTypes = []string{
	ProductPoster, ProductTShirt, ProductMug, ProductBook, ProductEbook, ProductAudiobook,
	Product3DModel, Product3DPrintable, ProductNFT, ProductSticker, ProductMockup,
	ProductBundle, ProductOther, ProductClarify,
}

var productAliases = map[string]string{
	"poster":              ProductPoster,
	"tshirt":              ProductTShirt,
	"tee":                 ProductTShirt,
	"polera":              ProductTShirt,
	"playera":             ProductTShirt,
	"mug":                 ProductMug,
	"cup":                 ProductMug,
	"book":                ProductBook,
	"libro":               ProductBook,
	"ebook":               ProductEbook,
	"e-book":              ProductEbook,
	"audiobook":           ProductAudiobook,
	"audio book":          ProductAudiobook,
	"3d_model":            Product3DModel,
	"3d-model":            Product3DModel,
	"model3d":             Product3DModel,
	"3d":                  Product3DModel,
	"3d_printable":        Product3DPrintable,
	"printable":           Product3DPrintable,
	"nft":                 ProductNFT,
	"sticker":             ProductSticker,
	"stickers":            ProductSticker,
	"mockup":              ProductMockup,
	"cover":               ProductMockup,
	"book_cover":          ProductMockup,
	"children_book_cover": ProductMockup,
	"bundle":              ProductBundle,
	"other":               ProductOther,
}

type intentHint struct {
	words   []string
	product string
}

// checked top to bottom, first hit wins
var intentHints = []intentHint{
	{words: []string{"poster", "póster"}, product: ProductPoster},
	{words: []string{"book", "libro", "ebook"}, product: ProductBook},
	{words: []string{"sticker"}, product: ProductSticker},
	{words: []string{"video", "clip", "gif"}, product: ProductMockup},
	{words: []string{"3d"}, product: Product3DModel},
}

// Canonicalize maps a raw product type, helped by the intent text, onto one value of
// ProductTypes. Unknown input resolves to "other".
func Canonicalize(productType, intent string) string {
	pt := strings.ToLower(strings.TrimSpace(productType))
	if canon, ok := productAliases[pt]; ok {
		return canon
	}

	in := strings.ToLower(intent)
	for _, hint := range intentHints {
		for _, w := range hint.words {
			if strings.Contains(in, w) {
				return hint.product
			}
		}
	}
	return ProductOther
}
