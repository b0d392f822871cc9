// Package attachment encodes and decodes the dual-purpose message payload.
//
// A message's content is either plain text or a JSON envelope describing an
// attachment. Decode runs once at the store boundary and yields a Content
// value; nothing downstream should probe the raw string again.
package attachment

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Kind identifies the attachment flavor carried by an envelope
type Kind string

const (
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindFile
}

var ErrUnknownKind = errors.New("attachment: unknown kind")

// Envelope is the structured attachment riding inside a message's content.
type Envelope struct {
	Kind    Kind
	Data    []byte
	Name    string
	Caption string
}

// Inline tells the consumer whether the attachment is displayed directly.
// Only images are; files surface their name and a generic icon.
func (e Envelope) Inline() bool {
	return e.Kind == KindImage
}

// Content is the decoded form of a message payload: exactly one of Text or
// Attachment is meaningful, selected by IsAttachment.
type Content struct {
	Text       string
	Attachment *Envelope
}

// IsAttachment reports which branch of the union is set.
func (c Content) IsAttachment() bool {
	return c.Attachment != nil
}

// Preview is a short single-line rendering for lists and notifications.
func (c Content) Preview() string {
	if c.Attachment == nil {
		return c.Text
	}
	if c.Attachment.Caption != "" {
		return c.Attachment.Caption
	}
	return "[" + string(c.Attachment.Kind) + "] " + c.Attachment.Name
}

// wire is the JSON layout of an envelope inside message content.
type wire struct {
	Type    *Kind   `json:"type"`
	Content *string `json:"content"`
	Name    string  `json:"name,omitempty"`
	Caption string  `json:"caption,omitempty"`
}

// Encode produces the self-describing text payload for an attachment.
// Data is carried base64 encoded; zero-byte files are allowed.
func Encode(kind Kind, data []byte, name, caption string) (string, error) {
	if !kind.Valid() {
		return "", ErrUnknownKind
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	b, err := json.Marshal(wire{Type: &kind, Content: &encoded, Name: name, Caption: caption})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode classifies content. It yields an attachment when the string parses
// as an object exposing a recognized "type" and a "content" field; anything
// else is plain text. Content that is not valid base64 is kept as raw bytes.
//
// Plain text that happens to look like an envelope is classified as an
// attachment. The codec is not lossless under adversarial input.
func Decode(content string) Content {
	var w wire
	if err := json.Unmarshal([]byte(content), &w); err != nil {
		return Content{Text: content}
	}
	if w.Type == nil || !w.Type.Valid() || w.Content == nil {
		return Content{Text: content}
	}
	data, err := base64.StdEncoding.DecodeString(*w.Content)
	if err != nil {
		data = []byte(*w.Content)
	}
	return Content{Attachment: &Envelope{
		Kind:    *w.Type,
		Data:    data,
		Name:    w.Name,
		Caption: w.Caption,
	}}
}
