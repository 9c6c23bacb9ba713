package fbpost

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Message is one unit of content to publish: a text body and an optional
// local image. The image is only checked for existence when posting.
type Message struct {
	Content   string
	ImagePath string
}

// Response is the decoded JSON body returned by the Graph API.
type Response map[string]any

// ID returns the object id the API assigned, or "" when absent.
func (r Response) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Identity is the id and display name of the authenticated actor.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Me wraps the identity response under a data key.
type Me struct {
	Data Identity `json:"data"`
}

// Page is a Facebook Page the user manages, with its page-scoped token.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}
