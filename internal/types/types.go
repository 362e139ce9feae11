package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Role is the guessed author of a message. It comes from DOM heuristics and
// is not ground truth.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// Link is a hyperlink found inside a message
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Message is a single extracted chat message
type Message struct {
	Index           int    `json:"index"`
	Turn            *int   `json:"turn,omitempty"`
	Role            Role   `json:"role"`
	Content         string `json:"content"`
	ContentMarkdown string `json:"content_markdown,omitempty"`
	Links           []Link `json:"links,omitempty"`
}

// Turn returns a pointer suitable for Message.Turn.
func Turn(n int) *int {
	return &n
}

// ChatRecord is the extraction result for one share page
type ChatRecord struct {
	URL            string    `json:"url"`
	FinalURL       string    `json:"final_url,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	Strategy       string    `json:"strategy,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	PageTitle      string    `json:"page_title"`
	StatusCode     int       `json:"status_code"`
	MessageCount   int       `json:"message_count"`
	Messages       []Message `json:"messages"`
	TextPreview    string    `json:"full_text_preview,omitempty"`
	HTMLFile       string    `json:"html_file,omitempty"`
	ScreenshotFile string    `json:"screenshot_file,omitempty"`
}

// MarshalJSON keeps message_count in step with the messages array and never
// emits a null array.
func (r ChatRecord) MarshalJSON() ([]byte, error) {
	type record ChatRecord
	out := record(r)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	out.MessageCount = len(out.Messages)
	return json.Marshal(out)
}

// Failure is the record written in place of a ChatRecord when a URL fails
type Failure struct {
	Error string `json:"error"`
	URL   string `json:"url"`
}

// Entry is the outcome for a single URL: either a record or a failure.
type Entry struct {
	Record  *ChatRecord
	Failure *Failure
}

// Succeeded wraps a record.
func Succeeded(r *ChatRecord) Entry {
	return Entry{Record: r}
}

// Failed wraps an error for the given URL.
func Failed(url string, err error) Entry {
	return Entry{Failure: &Failure{Error: err.Error(), URL: url}}
}

func (e Entry) OK() bool {
	return e.Failure == nil && e.Record != nil
}

func (e Entry) URL() string {
	switch {
	case e.Failure != nil:
		return e.Failure.URL
	case e.Record != nil:
		return e.Record.URL
	}
	return ""
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Failure != nil {
		return json.Marshal(e.Failure)
	}
	if e.Record != nil {
		return json.Marshal(e.Record)
	}
	return []byte("null"), nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*e = Entry{}
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if _, ok := probe["error"]; ok {
		var f Failure
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*e = Entry{Failure: &f}
		return nil
	}

	var r ChatRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = Entry{Record: &r}
	return nil
}

// Summary aggregates the outcome of a whole run
type Summary struct {
	Timestamp  time.Time `json:"timestamp"`
	TotalURLs  int       `json:"total_urls"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Results    []Entry   `json:"results"`
}

// NewSummary starts an empty summary stamped with ts.
func NewSummary(ts time.Time) *Summary {
	return &Summary{Timestamp: ts, Results: []Entry{}}
}

// Add records an entry and updates the counters.
func (s *Summary) Add(e Entry) {
	s.Results = append(s.Results, e)
	s.TotalURLs++
	if e.OK() {
		s.Successful++
	} else {
		s.Failed++
	}
}
