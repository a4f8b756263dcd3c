package domain

import "testing"

func sampleView() OrderView {
	return OrderView{
		StoreName: "食肆鍋",
		Items: []OrderViewItem{
			{Name: "招牌金湯酸菜", Quantity: 1, Price: 68},
			{Name: "白濃雞湯", Quantity: 1, Price: 49},
		},
		Total: 117,
	}
}

func TestClone(t *testing.T) {
	view := sampleView()
	clone := view.Clone()
	clone.Items[0].Name = "changed"
	if view.Items[0].Name != "招牌金湯酸菜" {
		t.Fatalf("clone shares item backing array with source")
	}
}

func TestRenderChineseSummary(t *testing.T) {
	got := RenderChineseSummary(sampleView())
	want := "招牌金湯酸菜 x 1、白濃雞湯 x 1"
	if got != want {
		t.Fatalf("chinese summary = %q, want %q", got, want)
	}
}

func TestRenderChineseSummaryEmpty(t *testing.T) {
	if got := RenderChineseSummary(OrderView{}); got != FallbackSummary {
		t.Fatalf("empty cart summary = %q, want %q", got, FallbackSummary)
	}
	blank := OrderView{Items: []OrderViewItem{{Name: "   ", Quantity: 2}}}
	if got := RenderChineseSummary(blank); got != FallbackSummary {
		t.Fatalf("blank-name cart summary = %q, want %q", got, FallbackSummary)
	}
}

func TestRenderUserSummary(t *testing.T) {
	view := OrderView{
		Items: []OrderViewItem{
			{Name: "Signature Golden Sauerkraut", Quantity: 1},
			{Name: "Creamy Chicken Soup", Quantity: 2},
		},
	}
	got := RenderUserSummary(view, "en")
	want := "Order: Signature Golden Sauerkraut x 1、Creamy Chicken Soup x 2"
	if got != want {
		t.Fatalf("user summary = %q, want %q", got, want)
	}
}

func TestRenderUserSummaryChineseCaller(t *testing.T) {
	view := sampleView()
	for _, lang := range []string{"zh", "zh-TW", "ZH-Hant", "zh-CN"} {
		got := RenderUserSummary(view, lang)
		want := RenderChineseSummary(view)
		if got != want {
			t.Fatalf("lang %s: user summary = %q, want chinese %q", lang, got, want)
		}
	}
}

func TestBuildVoiceText(t *testing.T) {
	got := BuildVoiceText(sampleView())
	want := "老闆,我要招牌金湯酸菜一份和白濃雞湯一份,謝謝。"
	if got != want {
		t.Fatalf("voice text = %q, want %q", got, want)
	}
}

func TestBuildVoiceTextSingleItem(t *testing.T) {
	view := OrderView{Items: []OrderViewItem{{Name: "牛肉麵", Quantity: 1}}}
	got := BuildVoiceText(view)
	want := "老闆,我要牛肉麵一份,謝謝。"
	if got != want {
		t.Fatalf("voice text = %q, want %q", got, want)
	}
}

func TestBuildVoiceTextClassifiersAndQuantities(t *testing.T) {
	view := OrderView{Items: []OrderViewItem{
		{Name: "珍珠奶茶", Quantity: 2},
		{Name: "可樂", Quantity: 1},
		{Name: "滷肉飯", Quantity: 3},
	}}
	got := BuildVoiceText(view)
	want := "老闆,我要珍珠奶茶2杯、可樂一杯和滷肉飯3份,謝謝。"
	if got != want {
		t.Fatalf("voice text = %q, want %q", got, want)
	}
}

func TestIsChineseTag(t *testing.T) {
	for tag, want := range map[string]bool{
		"zh": true, "zh-TW": true, " ZH-Hant ": true,
		"en": false, "ja": false, "": false,
	} {
		if got := IsChineseTag(tag); got != want {
			t.Fatalf("IsChineseTag(%q) = %v, want %v", tag, got, want)
		}
	}
}
