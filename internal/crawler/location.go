package crawler

import "strings"

// LocationParser derives city and state from a record title when the page does
// not label them. Returning "" means the value is unknown.
type LocationParser interface {
	State(title string) string
	City(title, state string) string
}

// TitleLocationParser reads titles shaped like "Remarks at a Rally in
// Phoenix, Arizona": the address follows the last " in " and the state is its
// final comma-separated part.
type TitleLocationParser struct{}

const addressMarker = " in "

// State returns the trailing comma-separated part of the title's address.
func (TitleLocationParser) State(title string) string {
	address, ok := addressOf(title)
	if !ok {
		return ""
	}
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

// City returns the leading part of the title's address, but only when the
// title ends with the known state.
func (TitleLocationParser) City(title, state string) string {
	state = strings.TrimSpace(state)
	if state == "" || state == UnknownValue {
		return ""
	}
	if !strings.HasSuffix(strings.TrimSpace(title), state) {
		return ""
	}
	address, ok := addressOf(title)
	if !ok {
		return ""
	}
	city := strings.TrimSpace(strings.Split(address, ",")[0])
	if city == state {
		return ""
	}
	return city
}

func addressOf(title string) (string, bool) {
	idx := strings.LastIndex(title, addressMarker)
	if idx < 0 {
		return "", false
	}
	address := strings.TrimSpace(title[idx+len(addressMarker):])
	return address, address != ""
}
