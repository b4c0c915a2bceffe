// Package model defines core data structures and types for the blog service.
package model

import "time"

type PostID string

// TimeFormat is the wire and storage format for post timestamps.
const TimeFormat = "2006-01-02 15:04:05"

// Timestamp is a time.Time that marshals to the blog's timestamp format
// instead of RFC 3339.
type Timestamp time.Time

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) String() string {
	return t.Time().Format(TimeFormat)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseTimestamp(s string) (Timestamp, error) {
	parsed, err := time.Parse(TimeFormat, s)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp(parsed), nil
}

// Now returns the current time truncated to the timestamp resolution.
func Now() Timestamp {
	return Timestamp(time.Now().UTC().Truncate(time.Second))
}

// Post is one blog entry. The ID doubles as the public URL slug and is
// assigned exactly once, at creation.
type Post struct {
	ID  PostID `json:"id"`
	URL string `json:"url"`

	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Tags    string `json:"tags"`

	Published Timestamp `json:"date_published"`
	Modified  Timestamp `json:"date_modified"`

	Public  bool `json:"public"`
	Deleted bool `json:"deleted"`
}

// BlogConfig is the per-blog key/value configuration table, read at startup
// and exposed read-only.
type BlogConfig map[string]string

// Get returns the value for key, or def when the key is absent or empty.
func (c BlogConfig) Get(key, def string) string {
	if v := c[key]; v != "" {
		return v
	}
	return def
}

// Blog config keys.
const (
	KeyBlogID          = "blog_id"
	KeyBlogPath        = "blog_path"
	KeyBaseURL         = "base_url"
	KeyIDSalt          = "id_salt"
	KeyIDLength        = "id_length"
	KeyContentEncoding = "content_encoding"
)
