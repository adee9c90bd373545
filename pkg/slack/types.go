package slack

// Message is a chat.postMessage / incoming webhook payload
// Reference: https://api.slack.com/messaging/webhooks
type Message struct {
	Channel     string  `json:"channel,omitempty"`
	Text        string  `json:"text,omitempty"`
	Blocks      []Block `json:"blocks,omitempty"`
	UnfurlLinks bool    `json:"unfurl_links,omitempty"`
}

// Block is a Block Kit element
type Block struct {
	Type     string       `json:"type"`
	Text     *TextObject  `json:"text,omitempty"`
	Fields   []TextObject `json:"fields,omitempty"`
	Elements []TextObject `json:"elements,omitempty"`
}

// TextObject is text within a block
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the Web API response envelope
type Response struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	TS      string `json:"ts,omitempty"`
	Channel string `json:"channel,omitempty"`
}
