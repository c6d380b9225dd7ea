package model

import "strings"

// SplitEntityID splits a Home Assistant entity id such as
// "sensor.power_usage" into its domain and object id.
func SplitEntityID(id string) (domain, object string, ok bool) {
	domain, object, ok = strings.Cut(id, ".")
	if !ok || domain == "" || object == "" || strings.Contains(object, ".") {
		return "", "", false
	}
	return domain, object, true
}
