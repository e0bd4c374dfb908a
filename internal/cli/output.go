package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"backend-journeylog/internal/journey"

	"gopkg.in/yaml.v3"
)

func printJourneys(w io.Writer, journeys []journey.Journey, format string) error {
	switch format {
	case "pretty", "":
		if len(journeys) == 0 {
			fmt.Fprintln(w, "(no journeys)")
			return nil
		}
		for _, j := range journeys {
			fmt.Fprintf(w, "%s  %s  %-6s  %s\n", j.Date.Format("2006-01-02"), j.ID, j.Season, j.Title)
		}
		return nil
	default:
		wire := make([]journey.Wire, len(journeys))
		for i, j := range journeys {
			wire[i] = journey.ToJSON(j)
		}
		return encode(w, wire, format)
	}
}

func printJourney(w io.Writer, j journey.Journey, format string) error {
	if format != "pretty" && format != "" {
		return encode(w, journey.ToJSON(j), format)
	}

	fmt.Fprintf(w, "%s\n", j.Title)
	fmt.Fprintf(w, "ID:        %s\n", j.ID)
	fmt.Fprintf(w, "Date:      %s\n", journey.FormatDate(j.Date))
	fmt.Fprintf(w, "Season:    %s\n", j.Season)
	if len(j.Members) > 0 {
		fmt.Fprintf(w, "Members:   %s\n", strings.Join(j.Members, ", "))
	}
	if !j.Itinerary.End.IsZero() {
		fmt.Fprintf(w, "Summit:    %.5f, %.5f\n", j.Itinerary.End.Latitude, j.Itinerary.End.Longitude)
	}
	fmt.Fprintf(w, "Altitudes: max %.0f m, min %.0f m, gain %.0f m\n", j.Altitudes.Max, j.Altitudes.Min, j.Altitudes.Total)
	fmt.Fprintf(w, "Meteo:     %s\n", meteoLine(j.Meteo))
	fmt.Fprintf(w, "Cams:      %s\n", journey.FormatCams(j.Protections.Cams))
	if j.Miscellaneous != "" {
		fmt.Fprintf(w, "\n%s\n", j.Miscellaneous)
	}
	return nil
}

func printMeteo(w io.Writer, m journey.Meteo, format string) error {
	if format != "pretty" && format != "" {
		return encode(w, m, format)
	}
	fmt.Fprintln(w, meteoLine(m))
	return nil
}

func meteoLine(m journey.Meteo) string {
	return fmt.Sprintf("%s, %.0f/%.0f °C, iso 0 %.0f/%.0f m, wind %s %.0f km/h, BERA %d",
		m.DisplayName(), m.Temperature.Min, m.Temperature.Max,
		m.Iso.Night, m.Iso.Day, m.Wind.Direction, m.Wind.Speed, m.Bera)
}

// encode writes v as JSON or YAML. YAML goes through the JSON form so both
// share field names.
func encode(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output %q (expected pretty|json|yaml)", format)
	}
}
