package llm

// ProductCopy is the output contract of the copy generator.
func ProductCopy() *Schema {
	platform := Object(map[string]*Schema{
		"amazon":            String("Amazon formatted listing content (HTML allowed if needed)"),
		"meesho":            String("Short, punchy listing for Meesho"),
		"shopify":           String("Engaging product page copy for Shopify"),
		"instagram_caption": String("Instagram caption with emojis and hashtags"),
		"whatsapp_message":  String("Direct sales pitch for WhatsApp broadcast"),
	}, "amazon", "meesho", "shopify", "instagram_caption", "whatsapp_message")

	return Object(map[string]*Schema{
		"title":            String("SEO optimized product title"),
		"bullets":          ArrayOf(String(""), "5 bullet points highlighting features and benefits"),
		"long_description": String("A detailed, persuasive product description"),
		"platform_copy":    platform,
		"seo_keywords":     ArrayOf(String(""), "List of high-ranking SEO keywords"),
	}, "title", "bullets", "long_description", "platform_copy", "seo_keywords")
}
