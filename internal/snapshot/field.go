package snapshot

// Field is a tracked export column.
type Field struct {
	Key    string
	Label  string
	Column string // lower-cased header name in the export
}

const (
	KeyStatusCode         = "status_code"
	KeyIndexability       = "indexability"
	KeyIndexabilityStatus = "indexability_status"
	KeyTitle              = "title"
	KeyMetaDescription    = "meta_description"
	KeyH1                 = "h1"
	KeyH1Second           = "h1_2"
	KeyMetaRobots         = "meta_robots"
	KeyCanonical          = "canonical"
	KeySize               = "size"
	KeyWordCount          = "word_count"
	KeyCrawlDepth         = "crawl_depth"
	KeyRedirectURL        = "redirect_url"
	KeyRedirectType       = "redirect_type"
	KeyRichResults        = "rich_results"
)

// Fields is the ordered list compared between snapshots.
var Fields = []Field{
	{KeyStatusCode, "Status Code", "status code"},
	{KeyIndexability, "Indexability", "indexability"},
	{KeyIndexabilityStatus, "Indexability Status", "indexability status"},
	{KeyTitle, "Title 1", "title 1"},
	{KeyMetaDescription, "Meta Description 1", "meta description 1"},
	{KeyH1, "H1-1", "h1-1"},
	{KeyH1Second, "H1-2", "h1-2"},
	{KeyMetaRobots, "Meta Robots 1", "meta robots 1"},
	{KeyCanonical, "Canonical Link Element 1", "canonical link element 1"},
	{KeySize, "Size (bytes)", "size (bytes)"},
	{KeyWordCount, "Word Count", "word count"},
	{KeyCrawlDepth, "Crawl Depth", "crawl depth"},
	{KeyRedirectURL, "Redirect URL", "redirect url"},
	{KeyRedirectType, "Redirect Type", "redirect type"},
	{KeyRichResults, "Rich Results Types", "rich results types"},
}

var urlHeaders = []string{"address", "url"}
