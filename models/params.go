package models

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
)

// Recognized input aliases. Campaign tools and older email templates use
// different spellings; they are resolved here and nowhere else.
var (
	pollIDKeys       = []string{"question_id", "questionId", "poll_id", "pollId", "q", "qid"}
	emailKeys        = []string{"email", "e"}
	emailB64Keys     = []string{"email_b64", "emailB64"}
	emailB64URLKeys  = []string{"email_b64url", "emailB64url"}
	redirectBaseKeys = []string{"redirect_base", "redirectBase"}
	formatKeys       = []string{"format", "f"}
	tokenKeys        = []string{"token", "token_id"}
	choiceKeys       = []string{"choice"}
)

// LinkParams are the resolved inputs of a link request
type LinkParams struct {
	PollID       string
	Email        string
	RedirectBase string
	Format       string
}

// WantsJSON reports whether the caller asked for the token instead of a redirect
func (p LinkParams) WantsJSON() bool {
	return p.Format == "json"
}

// ResolveLinkParams merges a decoded JSON body and the query string. Body
// values win over query values. An email that fails base64 decoding
// resolves to the empty string.
func ResolveLinkParams(body map[string]any, query url.Values) LinkParams {
	p := LinkParams{
		PollID:       lookup(body, query, pollIDKeys),
		RedirectBase: lookup(body, query, redirectBaseKeys),
		Format:       strings.ToLower(lookup(body, query, formatKeys)),
	}

	if v := lookup(body, query, emailB64URLKeys); v != "" {
		p.Email = decodeBase64(base64.RawURLEncoding, strings.TrimRight(v, "="))
	} else if v := lookup(body, query, emailB64Keys); v != "" {
		p.Email = decodeBase64(base64.StdEncoding, v)
	} else {
		p.Email = lookup(body, query, emailKeys)
	}

	return p
}

// VoteParams are the resolved inputs of a vote submission
type VoteParams struct {
	Token  string
	Choice string
	PollID string
}

// ResolveVoteParams reads a decoded JSON vote body
func ResolveVoteParams(body map[string]any) VoteParams {
	return VoteParams{
		Token:  lookup(body, nil, tokenKeys),
		Choice: lookup(body, nil, choiceKeys),
		PollID: lookup(body, nil, pollIDKeys),
	}
}

func lookup(body map[string]any, query url.Values, keys []string) string {
	for _, k := range keys {
		if v, ok := body[k]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	for _, k := range keys {
		if s := strings.TrimSpace(query.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func decodeBase64(enc *base64.Encoding, s string) string {
	b, err := enc.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(b)
}
