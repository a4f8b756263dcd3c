package domain

import (
	"fmt"
	"strings"
)

// FallbackSummary is emitted when a cart cannot be rendered (empty, or every
// item name unusable). It is a sentinel the pipeline logs loudly about but
// never errors on.
const FallbackSummary = "點餐摘要"

// OrderView is the render-time projection of an order: store name, item rows,
// and the integer total. Chinese and user-language renderings each receive
// their own deep copy so neither mutates the other's strings.
type OrderView struct {
	StoreName string
	Items     []OrderViewItem
	Total     int
}

// OrderViewItem is one row of an OrderView.
type OrderViewItem struct {
	Name     string
	Quantity int
	Price    int
}

// Clone returns a deep copy of the view.
func (v OrderView) Clone() OrderView {
	items := make([]OrderViewItem, len(v.Items))
	copy(items, v.Items)
	return OrderView{StoreName: v.StoreName, Items: items, Total: v.Total}
}

// renderable reports whether the view has at least one item with a usable name.
func (v OrderView) renderable() bool {
	for _, item := range v.Items {
		if strings.TrimSpace(item.Name) != "" {
			return true
		}
	}
	return false
}

// IsChineseTag reports whether the language tag denotes a Chinese locale.
// Matching is by prefix so zh, zh-TW, zh-Hant, zh-CN all count.
func IsChineseTag(lang string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), "zh")
}

// RenderChineseSummary renders the Chinese order summary from the native view.
func RenderChineseSummary(view OrderView) string {
	if !view.renderable() {
		return FallbackSummary
	}
	parts := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s x %d", name, item.Quantity))
	}
	return strings.Join(parts, "、")
}

// RenderUserSummary renders the user-language summary from the display view.
// For Chinese callers the result equals the Chinese rendering of the view.
func RenderUserSummary(view OrderView, lang string) string {
	if IsChineseTag(lang) {
		return RenderChineseSummary(view)
	}
	if !view.renderable() {
		return FallbackSummary
	}
	parts := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s x %d", name, item.Quantity))
	}
	return "Order: " + strings.Join(parts, "、")
}

// drinkMarkers are substrings that select the 「杯」 classifier.
var drinkMarkers = []string{"茶", "咖啡", "飲料", "果汁", "奶茶", "汽水", "可樂", "啤酒", "酒"}

func classifierFor(name string) string {
	for _, marker := range drinkMarkers {
		if strings.Contains(name, marker) {
			return "杯"
		}
	}
	return "份"
}

func quantityWord(q int) string {
	if q == 1 {
		return "一"
	}
	return fmt.Sprintf("%d", q)
}

// BuildVoiceText builds the spoken Mandarin order sentence from the native
// view. Items are joined with 「、」 and the final pair with 「和」.
func BuildVoiceText(view OrderView) string {
	if !view.renderable() {
		return FallbackSummary
	}
	phrases := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		phrases = append(phrases, name+quantityWord(item.Quantity)+classifierFor(name))
	}
	var joined string
	switch len(phrases) {
	case 1:
		joined = phrases[0]
	default:
		joined = strings.Join(phrases[:len(phrases)-1], "、") + "和" + phrases[len(phrases)-1]
	}
	return fmt.Sprintf("老闆,我要%s,謝謝。", joined)
}
