package derive

// fallbackRules stand in for the pattern table when it cannot be loaded.
var fallbackRules = []struct {
	keywords []string
	code     string
}{
	{[]string{"パノラマ"}, "E100-P"},
	{[]string{"デンタル", "x線", "レントゲン"}, "E000-D"},
	{[]string{"浸潤麻酔", "浸麻"}, "K001"},
}

func (b *builder) applyFallback(mc *matchContext) {
	b.warn("請求パターンを取得できなかったため、最小限のキーワード判定で算定しました。内容を確認してください")
	for _, r := range fallbackRules {
		if mc.has(r.keywords...) {
			b.addItem(r.code, 1, mc.teeth)
		}
	}
}
