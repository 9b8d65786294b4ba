package models

// StatusCodeBucket groups a 3-digit http status code into its class, e.g. "404" -> "4XX".
// Codes that are not 3 digits long or fall outside 1XX..5XX are skipped.
func StatusCodeBucket(code string) (string, bool) {
	if len(code) != 3 {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", false
		}
	}
	if code[0] < '1' || code[0] > '5' {
		return "", false
	}
	return code[:1] + "XX", true
}

// StatusCodes counts the bucketed status codes of every span in a list of traces.
func StatusCodes(traces [][]*Span) map[string]int {
	counts := make(map[string]int)
	for _, trace := range traces {
		for _, span := range trace {
			code, ok := span.StatusCode()
			if !ok {
				continue
			}
			bucket, ok := StatusCodeBucket(code)
			if !ok {
				continue
			}
			counts[bucket]++
		}
	}
	return counts
}

// StatusCodePercentages turns bucket counts into fractions of the total.
func StatusCodePercentages(counts map[string]int) map[string]float64 {
	total := 0
	for _, v := range counts {
		total += v
	}
	out := make(map[string]float64, len(counts))
	if total == 0 {
		return out
	}
	for k, v := range counts {
		out[k] = float64(v) / float64(total)
	}
	return out
}
