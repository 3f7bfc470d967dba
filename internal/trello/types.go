package trello

// Tool names exposed by the MCP server.
const (
	ToolSearchCards    = "search_trello_cards"
	ToolCardDetails    = "get_trello_card_details"
	ToolListBoards     = "list_trello_boards"
	ToolListLists      = "list_trello_lists"
	ToolCreateCard     = "create_trello_card"
	DefaultSearchLimit = 10
)

// knownTools is the supported operation set.
var knownTools = map[string]bool{
	ToolSearchCards: true,
	ToolCardDetails: true,
	ToolListBoards:  true,
	ToolListLists:   true,
	ToolCreateCard:  true,
}

// IsKnownTool reports whether name is one of the five supported operations.
func IsKnownTool(name string) bool {
	return knownTools[name]
}

// CardSummary is a card as returned by search results.
type CardSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Desc     string   `json:"desc"`
	ListName string   `json:"list_name"`
	Labels   []string `json:"labels"`
	Due      *string  `json:"due"`
	URL      string   `json:"url"`
}

// SearchResult is the search_trello_cards success shape.
type SearchResult struct {
	Cards []CardSummary `json:"cards"`
	Count int           `json:"count"`
}

// Comment is one card comment.
type Comment struct {
	Date   string `json:"date"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// CardDetail is the get_trello_card_details success shape.
type CardDetail struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Desc        string        `json:"desc"`
	ListName    string        `json:"list_name"`
	Labels      []string      `json:"labels"`
	Due         *string       `json:"due"`
	Members     []string      `json:"members"`
	Comments    []Comment     `json:"comments"`
	Attachments []interface{} `json:"attachments"`
	URL         string        `json:"url"`
}

// BoardInfo is one board in the list_trello_boards result.
type BoardInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ListInfo is one list in the list_trello_lists result.
type ListInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"card_count"`
}

// CreatedCard is the card portion of a create_trello_card success.
type CreatedCard struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ListName string `json:"list_name"`
}

// CreateResult is the create_trello_card success shape.
type CreateResult struct {
	Success bool        `json:"success"`
	Card    CreatedCard `json:"card"`
}

// Ticket is the API projection of a created card, surfaced to the chat
// client. Not persisted beyond the response.
type Ticket struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	BoardName string `json:"board_name"`
	ListName  string `json:"list_name"`
}
