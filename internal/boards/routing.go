// Package boards maps request types to Trello boards and renders the
// routing block appended to every system prompt.
package boards

import (
	"fmt"
	"sort"
	"strings"
)

// Board identifies one Trello board.
type Board struct {
	ID   string
	Name string
}

// defaultRouting is the built-in request-type routing, overridable from
// config.
var defaultRouting = map[string]Board{
	"desktop_support":     {ID: "674213d1c000f649b4ad902f", Name: "Desktop Support"},
	"facilities_support":  {ID: "691b97abf5a738a85fb76c02", Name: "Facilities Support"},
	"missing_report":      {ID: "691886780f0565105e671559", Name: "Engineering"},
	"new_report":          {ID: "691886780f0565105e671559", Name: "Engineering"},
	"enhancement_request": {ID: "691886780f0565105e671559", Name: "Engineering"},
}

// Router resolves request types to boards.
type Router struct {
	routing map[string]Board
}

// NewRouter builds a router from config overrides, falling back to the
// built-in routing when overrides is empty.
func NewRouter(overrides map[string]Board) *Router {
	routing := make(map[string]Board, len(defaultRouting))
	for k, v := range defaultRouting {
		routing[k] = v
	}
	for k, v := range overrides {
		routing[k] = v
	}
	return &Router{routing: routing}
}

// BoardForRequestType returns the board for a request type.
func (r *Router) BoardForRequestType(requestType string) (Board, bool) {
	b, ok := r.routing[requestType]
	return b, ok
}

// BoardName resolves a board ID to its display name. Empty when unknown.
func (r *Router) BoardName(boardID string) string {
	for _, b := range r.routing {
		if b.ID == boardID {
			return b.Name
		}
	}
	return ""
}

// All returns the full routing table.
func (r *Router) All() map[string]Board {
	out := make(map[string]Board, len(r.routing))
	for k, v := range r.routing {
		out[k] = v
	}
	return out
}

// RoutingPrompt renders the BOARD ROUTING block appended to every system
// prompt. Entries are sorted for a stable prompt.
func (r *Router) RoutingPrompt() string {
	types := make([]string, 0, len(r.routing))
	for requestType := range r.routing {
		types = append(types, requestType)
	}
	sort.Strings(types)

	var b strings.Builder
	b.WriteString("BOARD ROUTING:\n")
	b.WriteString("When creating tickets, you MUST use the correct board_id based on the request type:\n\n")
	for _, requestType := range types {
		board := r.routing[requestType]
		fmt.Fprintf(&b, "- %s: board_id=%q (%s)\n", requestType, board.ID, board.Name)
	}
	b.WriteString("\nIMPORTANT: Always include the board_id parameter when calling create_trello_card to ensure tickets are created on the correct board.")
	return b.String()
}
