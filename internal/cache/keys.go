package cache

import "fmt"

func GenerationStatusKey(id string) string {
	return fmt.Sprintf("generation:status:%s", id)
}

func GenerationResultKey(id string) string {
	return fmt.Sprintf("generation:result:%s", id)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
