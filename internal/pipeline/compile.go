package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

// BuildDays groups resolved entities by day, sorts days ascending and stops
// by their extraction order, then re-assigns a dense zero-based global order.
func BuildDays(entities []model.ResolvedEntity) []model.DayPlan {
	byDay := make(map[int][]model.ResolvedEntity)
	for _, e := range entities {
		byDay[e.Day] = append(byDay[e.Day], e)
	}

	dayNumbers := make([]int, 0, len(byDay))
	for day := range byDay {
		dayNumbers = append(dayNumbers, day)
	}
	sort.Ints(dayNumbers)

	next := 0
	days := make([]model.DayPlan, 0, len(dayNumbers))
	for _, day := range dayNumbers {
		entries := byDay[day]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Order < entries[j].Order
		})
		for i := range entries {
			entries[i].Order = next
			next++
		}
		days = append(days, model.DayPlan{Day: day, Entries: entries})
	}
	return days
}

// stopID names a stop by its dense global order.
func stopID(e model.ResolvedEntity) string {
	return fmt.Sprintf("stop-%d", e.Order)
}

// Compile assembles the final itinerary from the stage outputs.
func Compile(days []model.DayPlan, segments []model.RouteSegment, flights []model.FlightLeg, trains []model.TrainLeg) *model.Itinerary {
	it := &model.Itinerary{
		Days:     days,
		Segments: segments,
		Flights:  flights,
		Trains:   trains,
	}
	for _, seg := range segments {
		it.TotalDistanceKm += seg.DistanceKm
		it.TotalDurationMinutes += seg.DurationMinutes
	}
	it.TripType = ClassifyTrip(days, flights)
	it.Summary = Summarize(it)
	return it
}

// ClassifyTrip picks the coarse trip type: multi_city when flights span more
// than one day, road_trip for multi-day trips without that, city_tour for a
// packed single day, day_trip otherwise.
func ClassifyTrip(days []model.DayPlan, flights []model.FlightLeg) model.TripType {
	flightDays := make(map[int]bool)
	for _, f := range flights {
		flightDays[f.Day] = true
	}

	switch {
	case len(flightDays) > 1:
		return model.TripMultiCity
	case len(days) > 1:
		return model.TripRoadTrip
	case len(days) == 1 && len(days[0].Entries) > 5:
		return model.TripCityTour
	default:
		return model.TripDayTrip
	}
}

// Summarize renders the one-line human-readable counts summary.
func Summarize(it *model.Itinerary) string {
	counts := make(map[model.EntityKind]int)
	total := 0
	for _, d := range it.Days {
		for _, e := range d.Entries {
			counts[e.Kind]++
			total++
		}
	}

	parts := []string{
		fmt.Sprintf("%d %s", len(it.Days), plural("day", len(it.Days))),
		fmt.Sprintf("%d %s", total, plural("stop", total)),
	}
	for _, kind := range []model.EntityKind{model.KindCity, model.KindAttraction, model.KindHotel, model.KindRestaurant} {
		if n := counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, pluralize(kind, n)))
		}
	}
	if n := len(it.Flights); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, plural("flight", n)))
	}
	if n := len(it.Trains); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, plural("train", n)))
	}
	return strings.Join(parts, ", ")
}

func pluralize(kind model.EntityKind, n int) string {
	switch kind {
	case model.KindCity:
		if n == 1 {
			return "city"
		}
		return "cities"
	default:
		return plural(string(kind), n)
	}
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
