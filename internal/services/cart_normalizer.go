package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

var (
	// ErrCartEmpty indicates the submission carried no usable items.
	ErrCartEmpty = errors.New("cart: no valid items")
	// ErrCartInvalidInput indicates a malformed submission body.
	ErrCartInvalidInput = errors.New("cart: invalid input")
)

// ItemRef is a menu item reference that arrives either as an integer id or as
// a temporary string id minted by the OCR ingestor.
type ItemRef struct {
	ID   int64
	Temp string
}

// IsZero reports whether the reference is absent.
func (r ItemRef) IsZero() bool { return r.ID == 0 && r.Temp == "" }

// UnmarshalJSON accepts numbers, digit strings, and temp-id strings.
func (r *ItemRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` {
		*r = ItemRef{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			*r = ItemRef{ID: id}
		} else {
			*r = ItemRef{Temp: s}
		}
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("item ref: %w", err)
	}
	*r = ItemRef{ID: id}
	return nil
}

// SubmissionName arrives either as a bare string or as the nested
// {original, translated} pair.
type SubmissionName struct {
	Original   string
	Translated string
	nested     bool
}

// Nested reports whether the caller supplied the structured pair.
func (n SubmissionName) Nested() bool { return n.nested }

// UnmarshalJSON accepts both name shapes.
func (n *SubmissionName) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*n = SubmissionName{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = SubmissionName{Original: s}
		return nil
	}
	var pair struct {
		Original   string `json:"original"`
		Translated string `json:"translated"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("item name: %w", err)
	}
	*n = SubmissionName{Original: pair.Original, Translated: pair.Translated, nested: true}
	return nil
}

// SubmissionItem is one cart row as submitted, in any of the caller dialects.
// Aliased fields are collapsed by NormalizeCart.
type SubmissionItem struct {
	MenuItemID ItemRef         `json:"menu_item_id"`
	ItemID     ItemRef         `json:"id"`
	TempID     string          `json:"temp_id"`
	Name       *SubmissionName `json:"name"`
	OCRName    string          `json:"ocr_name"`
	Original   string          `json:"original_name"`
	Translated string          `json:"translated_name"`
	ItemName   string          `json:"item_name"`
	Quantity   int             `json:"quantity"`
	Qty        int             `json:"qty"`
	Price      *int            `json:"price"`
	PriceSmall *int            `json:"price_small"`
	PriceUnit  *int            `json:"price_unit"`
}

// CanonicalItem is the normalised cart row: the bilingual name pair, positive
// quantity, non-negative price, and at most one menu item reference.
type CanonicalItem struct {
	Name       domain.LocalizedName
	Quantity   int
	Price      int
	MenuItemID int64
	TempID     string
}

// Subtotal is quantity times unit price.
func (c CanonicalItem) Subtotal() int { return c.Quantity * c.Price }

// NormalizeCart coerces every submitted item to the canonical form. Items
// with non-positive quantity or negative price are dropped; an empty result
// fails with ErrCartEmpty. Caller input is never mutated and no database is
// touched.
func NormalizeCart(ctx context.Context, items []SubmissionItem, logger Logger) ([]CanonicalItem, error) {
	logger = normalizeLogger(logger)
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	out := make([]CanonicalItem, 0, len(items))
	for i, item := range items {
		name := resolveName(item)
		if strings.TrimSpace(name.Original) == "" && strings.TrimSpace(name.Translated) == "" {
			logger(ctx, "cart.item.dropped", map[string]any{"index": i, "reason": "no name"})
			continue
		}

		localized := domain.BuildLocalizedName(name.Original, name.Translated)
		if corrected, swapped := localized.CorrectReversal(); swapped {
			localized = corrected
			logger(ctx, "cart.item.reversed", map[string]any{"index": i, "original": localized.Original})
		}

		quantity := item.Quantity
		if quantity == 0 {
			quantity = item.Qty
		}
		price := firstPrice(item.Price, item.PriceSmall, item.PriceUnit)
		if quantity <= 0 || price < 0 {
			logger(ctx, "cart.item.dropped", map[string]any{
				"index":    i,
				"reason":   "bad quantity or price",
				"quantity": quantity,
				"price":    price,
			})
			continue
		}

		canonical := CanonicalItem{
			Name:     localized,
			Quantity: quantity,
			Price:    price,
		}
		switch ref := itemRef(item); {
		case ref.ID > 0:
			canonical.MenuItemID = ref.ID
		case ref.Temp != "":
			canonical.TempID = ref.Temp
		}
		out = append(out, canonical)
	}

	if len(out) == 0 {
		return nil, ErrCartEmpty
	}
	return out, nil
}

// resolveName collapses the name aliases in precedence order: the nested
// pair, then ocr_name/original_name as the presumed Chinese side with
// translated_name, then item_name, then a bare name string.
func resolveName(item SubmissionItem) SubmissionName {
	if item.Name != nil && item.Name.Nested() {
		return *item.Name
	}
	if original := firstNonEmpty(item.OCRName, item.Original); original != "" {
		return SubmissionName{Original: original, Translated: item.Translated}
	}
	if item.Translated != "" {
		return SubmissionName{Original: item.Translated}
	}
	if item.ItemName != "" {
		return SubmissionName{Original: item.ItemName, Translated: item.Translated}
	}
	if item.Name != nil {
		return *item.Name
	}
	return SubmissionName{}
}

func itemRef(item SubmissionItem) ItemRef {
	if !item.MenuItemID.IsZero() {
		return item.MenuItemID
	}
	if strings.TrimSpace(item.TempID) != "" {
		return ItemRef{Temp: strings.TrimSpace(item.TempID)}
	}
	return item.ItemID
}

func firstPrice(candidates ...*int) int {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
