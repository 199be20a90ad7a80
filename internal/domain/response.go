package domain

import "strings"

// PartType описывает тип части исходящего ответа.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part: часть исходящего ответа.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
	File string   `json:"file,omitempty"`
}

// Response: исходящий ответ. Пустой ответ означает «нет ответа».
type Response []Part

// Text собирает ответ из одной или нескольких текстовых частей.
func Text(lines ...string) Response {
	resp := make(Response, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		resp = append(resp, Part{Type: PartText, Text: line})
	}
	return resp
}

// Image собирает ответ из ссылки на изображение.
func Image(file string) Response {
	if strings.TrimSpace(file) == "" {
		return nil
	}
	return Response{{Type: PartImage, File: file}}
}

// Empty сообщает, что ответа нет.
func (r Response) Empty() bool {
	for _, p := range r {
		if p.Type == PartImage && p.File != "" {
			return false
		}
		if p.Type != PartImage && p.Text != "" {
			return false
		}
	}
	return true
}

// PlainText склеивает текстовые части ответа.
func (r Response) PlainText() string {
	texts := make([]string, 0, len(r))
	for _, p := range r {
		if p.Type == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
