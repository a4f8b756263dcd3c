package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestNormalizeCartCollapsesDialects(t *testing.T) {
	items := []SubmissionItem{
		{OCRName: "牛肉麵", Translated: "Beef Noodles", Quantity: 2, Price: intPtr(120)},
		{ItemName: "珍珠奶茶", Qty: 1, PriceSmall: intPtr(60)},
	}

	cart, err := NormalizeCart(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(cart) != 2 {
		t.Fatalf("expected 2 items, got %d", len(cart))
	}

	first := cart[0]
	if first.Name.Original != "牛肉麵" || first.Name.Translated != "Beef Noodles" {
		t.Fatalf("unexpected name pair %+v", first.Name)
	}
	if first.Subtotal() != 240 {
		t.Fatalf("expected subtotal 240, got %d", first.Subtotal())
	}

	second := cart[1]
	if second.Name.Original != "珍珠奶茶" {
		t.Fatalf("expected item_name as original, got %q", second.Name.Original)
	}
	if second.Quantity != 1 || second.Price != 60 {
		t.Fatalf("expected qty/price_small aliases applied, got %+v", second)
	}
}

func TestNormalizeCartCorrectsReversedNames(t *testing.T) {
	// The caller swapped the pair: Latin text in the Chinese slot.
	items := []SubmissionItem{
		{OCRName: "Fried Rice", Translated: "炒飯", Quantity: 1, Price: intPtr(80)},
	}

	cart, err := NormalizeCart(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cart[0].Name.Original != "炒飯" {
		t.Fatalf("expected CJK text on the original side, got %q", cart[0].Name.Original)
	}
	if cart[0].Name.Translated != "Fried Rice" {
		t.Fatalf("expected Latin text on the translated side, got %q", cart[0].Name.Translated)
	}
}

func TestNormalizeCartDropsInvalidItemsKeepsRest(t *testing.T) {
	items := []SubmissionItem{
		{OCRName: "滷肉飯", Quantity: 0, Price: intPtr(50)},  // no quantity
		{OCRName: "蚵仔煎", Quantity: 1, Price: intPtr(-10)}, // negative price
		{Quantity: 1, Price: intPtr(30)},                  // no name at all
		{OCRName: "小籠包", Quantity: 3, Price: intPtr(90)},
	}

	cart, err := NormalizeCart(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(cart) != 1 {
		t.Fatalf("expected only the valid item to survive, got %d", len(cart))
	}
	if cart[0].Name.Original != "小籠包" || cart[0].Subtotal() != 270 {
		t.Fatalf("unexpected surviving item %+v", cart[0])
	}
}

func TestNormalizeCartEmptyResultFails(t *testing.T) {
	if _, err := NormalizeCart(context.Background(), nil, nil); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty for nil input, got %v", err)
	}

	items := []SubmissionItem{{OCRName: "豆花", Quantity: -1, Price: intPtr(40)}}
	if _, err := NormalizeCart(context.Background(), items, nil); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty when every item drops, got %v", err)
	}
}

func TestNormalizeCartPrefersMenuItemIDOverTempID(t *testing.T) {
	items := []SubmissionItem{
		{MenuItemID: ItemRef{ID: 12}, TempID: "temp_55_0", OCRName: "排骨飯", Quantity: 1, Price: intPtr(100)},
		{TempID: "temp_55_1", OCRName: "雞腿飯", Quantity: 1, Price: intPtr(95)},
	}

	cart, err := NormalizeCart(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cart[0].MenuItemID != 12 || cart[0].TempID != "" {
		t.Fatalf("expected integer ref to win, got %+v", cart[0])
	}
	if cart[1].MenuItemID != 0 || cart[1].TempID != "temp_55_1" {
		t.Fatalf("expected temp ref to carry, got %+v", cart[1])
	}
}

func TestItemRefDecodesAllShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want ItemRef
	}{
		{"number", `17`, ItemRef{ID: 17}},
		{"digit string", `"17"`, ItemRef{ID: 17}},
		{"temp string", `"temp_55_2"`, ItemRef{Temp: "temp_55_2"}},
		{"null", `null`, ItemRef{}},
		{"empty string", `""`, ItemRef{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ref ItemRef
			if err := json.Unmarshal([]byte(tc.in), &ref); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.in, err)
			}
			if ref != tc.want {
				t.Fatalf("got %+v, want %+v", ref, tc.want)
			}
		})
	}
}

func TestSubmissionNameDecodesBothShapes(t *testing.T) {
	var bare SubmissionName
	if err := json.Unmarshal([]byte(`"牛肉麵"`), &bare); err != nil {
		t.Fatalf("unmarshal bare: %v", err)
	}
	if bare.Original != "牛肉麵" || bare.Nested() {
		t.Fatalf("unexpected bare decode %+v", bare)
	}

	var pair SubmissionName
	if err := json.Unmarshal([]byte(`{"original":"牛肉麵","translated":"Beef Noodles"}`), &pair); err != nil {
		t.Fatalf("unmarshal pair: %v", err)
	}
	if pair.Original != "牛肉麵" || pair.Translated != "Beef Noodles" || !pair.Nested() {
		t.Fatalf("unexpected pair decode %+v", pair)
	}
}

func TestNormalizeCartNestedNameWinsOverAliases(t *testing.T) {
	name := SubmissionName{Original: "牛肉麵", Translated: "Beef Noodles", nested: true}
	items := []SubmissionItem{
		{Name: &name, OCRName: "ignored", Quantity: 1, Price: intPtr(120)},
	}

	cart, err := NormalizeCart(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cart[0].Name.Original != "牛肉麵" || cart[0].Name.Translated != "Beef Noodles" {
		t.Fatalf("expected nested pair to win, got %+v", cart[0].Name)
	}
}
