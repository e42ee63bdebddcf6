package www

import (
	"net/url"
	"strconv"
	"strings"
)

func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func stringOrDefault(u *url.URL, key string, defaultValue string) string {
	if v := strings.TrimSpace(u.Query().Get(key)); v != "" {
		return v
	}
	return defaultValue
}

// listParam accepts both repeated keys and comma separated values.
func listParam(u *url.URL, key string) []string {
	var list []string
	for _, v := range u.Query()[key] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
	}
	return list
}
