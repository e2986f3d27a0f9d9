package conductor

// CommercialSection picks the smallest section from an ascending list that
// covers the theoretical one. When nothing covers it the largest section is
// returned with ok=false; callers report those circuits as unsizable.
func CommercialSection(sections []float64, theoreticalMM2 float64) (float64, bool) {
	if len(sections) == 0 {
		return 0, false
	}
	for _, sec := range sections {
		if sec >= theoreticalMM2 {
			return sec, true
		}
	}
	return sections[len(sections)-1], false
}
