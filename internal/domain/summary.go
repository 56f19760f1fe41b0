package domain

import (
	"encoding/json"
	"strings"
)

// Summary holds the structured analysis of a research paper. The JSON keys
// match the contract the LLM is prompted to fill, so a model response can be
// unmarshaled straight into it.
type Summary struct {
	Abstract     string `json:"abstract"`
	Motivation   string `json:"motivation"`
	Contribution string `json:"contribution"`
	Experiments  string `json:"what_does_paper_do"`
	Methodology  string `json:"how_does_paper_do"`
	Limitations  string `json:"limitations_challenges"`
	FutureWork   string `json:"future_work"`
	Conclusion   string `json:"conclusion"`
}

// Section pairs a display title with its summary body.
type Section struct {
	Key   string
	Title string
	Body  string
}

// Sections returns the summary in presentation order, including empty ones.
func (s *Summary) Sections() []Section {
	return []Section{
		{Key: "abstract", Title: "Abstract", Body: s.Abstract},
		{Key: "motivation", Title: "Motivation", Body: s.Motivation},
		{Key: "contribution", Title: "Contribution", Body: s.Contribution},
		{Key: "what_does_paper_do", Title: "Experiments & Results", Body: s.Experiments},
		{Key: "how_does_paper_do", Title: "Methodology", Body: s.Methodology},
		{Key: "limitations_challenges", Title: "Limitations & Challenges", Body: s.Limitations},
		{Key: "future_work", Title: "Future Work", Body: s.FutureWork},
		{Key: "conclusion", Title: "Conclusion", Body: s.Conclusion},
	}
}

// IsEmpty reports whether no section has content.
func (s *Summary) IsEmpty() bool {
	for _, sec := range s.Sections() {
		if strings.TrimSpace(sec.Body) != "" {
			return false
		}
	}
	return true
}

// MarshalJSONMap returns the summary as a generic map, used when persisting
// the raw analysis blob alongside the typed columns.
func (s *Summary) MarshalJSONMap() (json.RawMessage, error) {
	return json.Marshal(s)
}
