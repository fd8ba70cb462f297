package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/voyant-travel/itinerary-cli/internal/gazetteer"
	"github.com/voyant-travel/itinerary-cli/internal/model"
)

// Pattern-based extraction, used when the oracle returns nothing usable.
var (
	flightNumberPattern = regexp.MustCompile(`\b([A-Z]{2})(\d{3,4})\b`)
	airportPairPattern  = regexp.MustCompile(`\b([A-Z]{3})\s*(?:-|→|->|to)\s*([A-Z]{3})\b`)
	trainNumberPattern  = regexp.MustCompile(`\b([GDKTZ]\d{3,4})\b`)

	// Day markers across locales: "Day 3", "D3", "第3天", "第３天", "第三天".
	dayMarkerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bday\s*(\d+)\b`),
		regexp.MustCompile(`\bD(\d{1,2})\b`),
		regexp.MustCompile(`第([0-9０-９一二三四五六七八九十]+)天`),
	}
)

// FallbackExtract scans the text with the deterministic patterns and the
// gazetteer. Entities are attributed to the day of the nearest preceding day
// marker, defaulting to 1; estimatedDays is the highest marker found.
func FallbackExtract(text string, gaz *gazetteer.Gazetteer) *model.Extraction {
	if gaz == nil {
		gaz = gazetteer.Default()
	}
	ex := &model.Extraction{EstimatedDays: 1}
	if strings.TrimSpace(text) == "" {
		return ex
	}

	markers := findDayMarkers(text)
	for _, m := range markers {
		if m.day > ex.EstimatedDays {
			ex.EstimatedDays = m.day
		}
	}
	dayAt := func(offset int) int {
		day := 1
		for _, m := range markers {
			if m.offset > offset {
				break
			}
			day = m.day
		}
		return day
	}

	// Flights: explicit numbers, plus airport pairs around separators.
	pairs := airportPairPattern.FindAllStringSubmatchIndex(text, -1)
	numbers := flightNumberPattern.FindAllStringSubmatchIndex(text, -1)
	seenFlights := make(map[string]bool)
	for i, num := range numbers {
		flightNumber := text[num[0]:num[1]]
		// Train numbers share the shape of flight codes with [GDKTZ] carriers;
		// let the dedicated train pattern claim those.
		if trainNumberPattern.MatchString(flightNumber) {
			continue
		}
		if seenFlights[flightNumber] {
			continue
		}
		seenFlights[flightNumber] = true

		leg := model.FlightLeg{FlightNumber: flightNumber, Day: dayAt(num[0])}
		if i < len(pairs) {
			p := pairs[i]
			leg.DepartureCode = text[p[2]:p[3]]
			leg.ArrivalCode = text[p[4]:p[5]]
		}
		ex.Flights = append(ex.Flights, leg)
	}
	// Airport pairs with no flight number still describe a flight.
	for i := len(ex.Flights); i < len(pairs); i++ {
		p := pairs[i]
		ex.Flights = append(ex.Flights, model.FlightLeg{
			DepartureCode: text[p[2]:p[3]],
			ArrivalCode:   text[p[4]:p[5]],
			Day:           dayAt(p[0]),
		})
	}

	seenTrains := make(map[string]bool)
	for _, m := range trainNumberPattern.FindAllStringSubmatchIndex(text, -1) {
		number := text[m[2]:m[3]]
		if seenTrains[number] {
			continue
		}
		seenTrains[number] = true
		ex.Trains = append(ex.Trains, model.TrainLeg{
			TrainNumber: number,
			Day:         dayAt(m[0]),
			HighSpeed:   isHighSpeedNumber(number),
		})
	}

	lowered := strings.ToLower(text)
	for _, place := range gaz.Scan(text) {
		offset := indexOfPlace(lowered, place)
		ex.Entities = append(ex.Entities, model.RawEntity{
			Name: place.Name,
			Kind: place.Kind,
			Day:  dayAt(offset),
		})
	}

	if days := maxDay(ex); days > ex.EstimatedDays {
		ex.EstimatedDays = days
	}
	return ex
}

type dayMarker struct {
	offset int
	day    int
}

func findDayMarkers(text string) []dayMarker {
	var markers []dayMarker
	for _, pattern := range dayMarkerPatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			day := parseDayNumber(text[m[2]:m[3]])
			if day >= 1 {
				markers = append(markers, dayMarker{offset: m[0], day: day})
			}
		}
	}
	// Insertion sort by offset; marker counts are tiny.
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j-1].offset > markers[j].offset; j-- {
			markers[j-1], markers[j] = markers[j], markers[j-1]
		}
	}
	return markers
}

// parseDayNumber handles ASCII digits, full-width digits, and the simple
// Chinese numerals used in day markers (一 through 十九).
func parseDayNumber(s string) int {
	var ascii strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			ascii.WriteRune(r)
		case r >= '０' && r <= '９':
			ascii.WriteRune('0' + (r - '０'))
		}
	}
	if ascii.Len() > 0 {
		n, err := strconv.Atoi(ascii.String())
		if err != nil {
			return 0
		}
		return n
	}
	return parseChineseNumeral(s)
}

var chineseDigits = map[rune]int{
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

func parseChineseNumeral(s string) int {
	runes := []rune(s)
	switch {
	case len(runes) == 1 && runes[0] == '十':
		return 10
	case len(runes) == 1:
		return chineseDigits[runes[0]]
	case len(runes) == 2 && runes[0] == '十':
		return 10 + chineseDigits[runes[1]]
	case len(runes) == 2 && runes[1] == '十':
		return chineseDigits[runes[0]] * 10
	case len(runes) == 3 && runes[1] == '十':
		return chineseDigits[runes[0]]*10 + chineseDigits[runes[2]]
	}
	return 0
}

// indexOfPlace locates the earliest occurrence of any variant of the place,
// for day attribution. Falls back to 0 when no variant is found verbatim.
func indexOfPlace(loweredText string, place *gazetteer.Place) int {
	best := -1
	for _, name := range append([]string{place.Name}, place.Variants...) {
		key := gazetteer.NormalizeKey(name)
		if key == "" {
			continue
		}
		if idx := strings.Index(loweredText, key); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
