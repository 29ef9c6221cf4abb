package paper

// Item kinds, one per access pattern.
const (
	ItemTypeCategory = "CATEGORY"
	ItemTypeAuthor   = "AUTHOR"
	ItemTypeKeyword  = "KEYWORD"
	ItemTypePaper    = "PAPER"
)

// Secondary index names. Each index re-keys the same items by its own
// partition/sort attribute pair so one table serves every access pattern.
const (
	AuthorIndex  = "AuthorIndex"  // GSI1
	PaperIDIndex = "PaperIdIndex" // GSI2
	KeywordIndex = "KeywordIndex" // GSI3
)

// PaperSortSentinel is the fixed sort key of the identifier item, making
// it a single-item lookup by partition key alone.
const PaperSortSentinel = "PAPER"

// Item is one physical, denormalized copy of a Paper, shaped for a single
// access pattern. (PK, SK) is the item identity: re-writing the same pair
// overwrites in place, which is what makes ingestion idempotent.
//
// Every item carries the full paper attribute set so a single read
// satisfies the query without a follow-up fetch.
type Item struct {
	PK       string `dynamodbav:"PK" json:"-"`
	SK       string `dynamodbav:"SK" json:"-"`
	GSI1PK   string `dynamodbav:"GSI1PK,omitempty" json:"-"`
	GSI1SK   string `dynamodbav:"GSI1SK,omitempty" json:"-"`
	GSI2PK   string `dynamodbav:"GSI2PK,omitempty" json:"-"`
	GSI2SK   string `dynamodbav:"GSI2SK,omitempty" json:"-"`
	GSI3PK   string `dynamodbav:"GSI3PK,omitempty" json:"-"`
	GSI3SK   string `dynamodbav:"GSI3SK,omitempty" json:"-"`
	ItemType string `dynamodbav:"item_type" json:"-"`

	ArxivID    string   `dynamodbav:"arxiv_id" json:"arxiv_id"`
	Title      string   `dynamodbav:"title" json:"title"`
	Abstract   string   `dynamodbav:"abstract" json:"abstract"`
	Authors    []string `dynamodbav:"authors" json:"authors"`
	Categories []string `dynamodbav:"categories" json:"categories"`
	Keywords   []string `dynamodbav:"keywords" json:"keywords"`
	Published  string   `dynamodbav:"published" json:"published"`
}

// Key builders. Key shape is a pure function of the paper, so two loads of
// the same record always converge on the same items.

func CategoryPK(category string) string { return "CATEGORY#" + category }
func AuthorPK(author string) string     { return "AUTHOR#" + author }
func KeywordPK(keyword string) string   { return "KEYWORD#" + keyword }
func PaperPK(id string) string          { return "PAPER#" + id }

// DateSK builds the chronological sort key <date>#<id>. Lexicographic
// order on it equals publication order, with the identifier breaking ties.
func DateSK(date, id string) string { return date + "#" + id }
