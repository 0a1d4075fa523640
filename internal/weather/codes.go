package weather

// UnknownLabel is shown for codes outside the WMO table.
const UnknownLabel = "不明"

// wmoLabels maps WMO weather interpretation codes to display labels.
var wmoLabels = map[int]string{
	0:  "快晴",
	1:  "晴れ",
	2:  "一部曇り",
	3:  "曇り",
	45: "霧",
	48: "着氷性の霧",
	51: "弱い霧雨",
	53: "霧雨",
	55: "強い霧雨",
	56: "弱い着氷性の霧雨",
	57: "強い着氷性の霧雨",
	61: "弱い雨",
	63: "雨",
	65: "強い雨",
	66: "弱い着氷性の雨",
	67: "強い着氷性の雨",
	71: "弱い雪",
	73: "雪",
	75: "強い雪",
	77: "霧雪",
	80: "弱いにわか雨",
	81: "にわか雨",
	82: "激しいにわか雨",
	85: "弱いにわか雪",
	86: "強いにわか雪",
	95: "雷雨",
	96: "雷雨（弱い雹）",
	99: "雷雨（強い雹）",
}

// Label returns the display label for a WMO weather code.
func Label(code int) string {
	if l, ok := wmoLabels[code]; ok {
		return l
	}
	return UnknownLabel
}
