package etl

import "strings"

// Category is a policy indicator and the substrings that switch it on.
type Category struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// ValidateCategories checks names are present and unique and that no
// keyword is empty.
func ValidateCategories(categories []Category) error {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if strings.TrimSpace(c.Name) == "" {
			return configErrorf("keyword category without a name")
		}
		if seen[c.Name] {
			return configErrorf("keyword category %q defined twice", c.Name)
		}
		seen[c.Name] = true
		for _, kw := range c.Keywords {
			if kw == "" {
				return configErrorf("keyword category %q has an empty keyword", c.Name)
			}
		}
	}
	return nil
}

// KeywordTransform scans a free-text column and derives one indicator per
// category: 1 when any of its keywords occurs in the text, ignoring case.
type KeywordTransform struct {
	Field      string
	Categories []Category
}

func (k *KeywordTransform) Transform(t *Table) (*Table, error) {
	if !t.HasColumn(k.Field) {
		return nil, &MissingColumnError{Stage: "keywords", Column: k.Field}
	}
	if err := ValidateCategories(k.Categories); err != nil {
		return nil, err
	}

	folded := make([][]string, len(k.Categories))
	for i, c := range k.Categories {
		if c.Name == k.Field {
			return nil, configErrorf("keywords: category %q would overwrite the text column", c.Name)
		}
		folded[i] = make([]string, len(c.Keywords))
		for j, kw := range c.Keywords {
			folded[i][j] = fold(kw)
		}
	}

	out := t.Clone()
	for _, r := range out.Records {
		if isBlank(r.Data[k.Field]) {
			r.Data[k.Field] = "0"
		}
		text := fold(cellText(r.Data[k.Field]))
		for i, c := range k.Categories {
			r.Data[c.Name] = anyKeyword(text, folded[i])
		}
	}
	for _, c := range k.Categories {
		out.setField(c.Name, FieldInteger)
	}
	return out, nil
}

func anyKeyword(text string, keywords []string) int {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return 1
		}
	}
	return 0
}

// EncodeKeywords adds one indicator column per category, derived from
// textColumn.
func EncodeKeywords(t *Table, textColumn string, categories []Category) (*Table, error) {
	return (&KeywordTransform{Field: textColumn, Categories: categories}).Transform(t)
}
