package rules

// luhnOK validates a candidate card number with the mod-10 checksum after
// stripping separators. Card numbers are 13 to 19 digits.
func luhnOK(s string) bool {
	digits := make([]int, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	checksum := 0
	parity := len(digits) % 2
	for i, d := range digits {
		if i%2 == parity {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		checksum += d
	}
	return checksum%10 == 0
}
