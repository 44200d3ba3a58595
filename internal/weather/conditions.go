package weather

import (
	"strings"

	"github.com/i474232898/forecast-sync/internal/common"
)

// ConditionFor maps an OpenWeatherMap condition code to a Condition. Codes
// outside the known groups fall back to keywords in the description.
func ConditionFor(code int, description string) Condition {
	switch {
	case code >= 200 && code <= 232, code == 781, code >= 900 && code <= 902:
		return ConditionStorm
	case code >= 300 && code <= 321, code >= 500 && code <= 531:
		return ConditionRain
	case code >= 600 && code <= 622:
		return ConditionSnow
	case code >= 701 && code <= 771:
		return ConditionMist
	case code == 800:
		return ConditionClear
	case code >= 801 && code <= 804:
		return ConditionCloudy
	}

	d := strings.ToLower(description)
	switch {
	case common.HasAny(d, "thunder", "storm", "tornado"):
		return ConditionStorm
	case common.HasAny(d, "rain", "drizzle", "shower"):
		return ConditionRain
	case common.HasAny(d, "snow", "sleet"):
		return ConditionSnow
	case common.HasAny(d, "mist", "fog", "haze", "smoke", "dust"):
		return ConditionMist
	case common.HasAny(d, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(d, "clear", "sunny"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

// DescriptionFor returns a short description for a condition code.
func DescriptionFor(code int) string {
	switch {
	case code >= 200 && code <= 232:
		return "storm"
	case code >= 300 && code <= 321:
		return "drizzle"
	case code == 500:
		return "light rain"
	case code == 501:
		return "moderate rain"
	case code == 502, code == 503, code == 504:
		return "heavy rain"
	case code == 511:
		return "freezing rain"
	case code >= 520 && code <= 531:
		return "rain showers"
	case code == 600:
		return "light snow"
	case code == 602:
		return "heavy snow"
	case code >= 611 && code <= 616:
		return "sleet"
	case code >= 600 && code <= 622:
		return "snow"
	case code == 701:
		return "mist"
	case code == 711:
		return "smoke"
	case code == 721:
		return "haze"
	case code == 731, code == 761:
		return "dust"
	case code == 741:
		return "fog"
	case code == 751:
		return "sand"
	case code == 762:
		return "volcanic ash"
	case code == 771:
		return "squalls"
	case code == 781, code == 900:
		return "tornado"
	case code == 800:
		return "clear"
	case code == 801:
		return "few clouds"
	case code == 802:
		return "scattered clouds"
	case code == 803:
		return "broken clouds"
	case code == 804:
		return "overcast clouds"
	default:
		return "unknown"
	}
}
