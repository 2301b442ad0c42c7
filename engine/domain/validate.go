package domain

import "strings"

// ValidateDocument checks a Document before ingestion.
func ValidateDocument(doc Document) error {
	if !ValidCorpora[doc.Corpus] {
		return NewValidationError("corpus", string(doc.Corpus), ErrUnknownCorpus)
	}
	if doc.ID == "" {
		return NewValidationError("id", "", ErrEmptyDocumentID)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return NewValidationError("text", "", ErrEmptyDocument)
	}
	return nil
}

// ValidateQuestion checks the free-text question of a query.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return NewValidationError("question", question, ErrEmptyQuestion)
	}
	return nil
}

// ValidateCorpus checks a corpus selector.
func ValidateCorpus(c Corpus) error {
	if !ValidCorpora[c] {
		return NewValidationError("corpus", string(c), ErrUnknownCorpus)
	}
	return nil
}
