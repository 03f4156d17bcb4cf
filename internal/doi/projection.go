package doi

import (
	"encoding/json"
	"fmt"
	"strings"
)

type person struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// authors renders "given family" names joined by ", ".
func authors(people []person) string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		if name := strings.TrimSpace(p.Given + " " + p.Family); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

type crossrefWork struct {
	Title     []string `json:"title"`
	Author    []person `json:"author"`
	Published *struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
	Abstract string   `json:"abstract"`
	Subject  []string `json:"subject"`
	DOI      string   `json:"DOI"`
	Version  string   `json:"version"`
}

func (w *crossrefWork) project(doi string) Metadata {
	m := Metadata{
		Author:      authors(w.Author),
		Description: w.Abstract,
		Keywords:    w.Subject,
		Version:     w.Version,
	}
	if len(w.Title) > 0 {
		m.Name = w.Title[0]
	}
	if w.Published != nil && len(w.Published.DateParts) > 0 {
		m.DatePublished = dateFromParts(w.Published.DateParts[0])
	}
	if w.DOI != "" {
		doi = w.DOI
	}
	m.URL = "https://doi.org/" + doi
	return m
}

// dateFromParts formats [year, month, day] as YYYY-MM-DD, defaulting a
// missing month or day to 1.
func dateFromParts(parts []int) string {
	if len(parts) == 0 || parts[0] == 0 {
		return ""
	}
	month, day := 1, 1
	if len(parts) > 1 && parts[1] > 0 {
		month = parts[1]
	}
	if len(parts) > 2 && parts[2] > 0 {
		day = parts[2]
	}
	return fmt.Sprintf("%d-%02d-%02d", parts[0], month, day)
}

type dataciteWork struct {
	Title       string      `json:"title"`
	Author      []person    `json:"author"`
	Published   json.Number `json:"published"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	DOI         string      `json:"doi"`
	Version     string      `json:"version"`
}

// UnmarshalJSON accepts published as a number or a string.
func (w *dataciteWork) UnmarshalJSON(data []byte) error {
	type plain dataciteWork
	var aux struct {
		plain
		Published any `json:"published"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*w = dataciteWork(aux.plain)
	switch p := aux.Published.(type) {
	case string:
		w.Published = json.Number(p)
	case float64:
		w.Published = json.Number(fmt.Sprintf("%.0f", p))
	default:
		w.Published = ""
	}
	return nil
}

func (w *dataciteWork) project(doi string) Metadata {
	m := Metadata{
		Name:        w.Title,
		Author:      authors(w.Author),
		Description: w.Description,
		URL:         w.URL,
		Version:     w.Version,
	}
	if year := strings.TrimSpace(w.Published.String()); year != "" {
		m.DatePublished = year + "-01-01"
	}
	if m.URL == "" {
		if w.DOI != "" {
			doi = w.DOI
		}
		m.URL = "https://doi.org/" + doi
	}
	return m
}
