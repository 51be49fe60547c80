package cache

import (
	"fmt"
	"time"
)

const (
	TagListKey          = "tags:all"
	TagKeyPrefix        = "tag:%d"
	IngredientKeyPrefix = "ingredient:%d"
	ShortCodeKeyPrefix  = "shortcode:%s"
	TokenBlacklistKey   = "jwt:blacklist:%s"
)

const (
	TagTTL        = 1 * time.Hour
	IngredientTTL = 1 * time.Hour
	// Codes never change once assigned, so resolution can be cached for long.
	ShortCodeTTL = 24 * time.Hour
)

func TagKey(id uint) string {
	return fmt.Sprintf(TagKeyPrefix, id)
}

func IngredientKey(id uint) string {
	return fmt.Sprintf(IngredientKeyPrefix, id)
}

func ShortCodeKey(code string) string {
	return fmt.Sprintf(ShortCodeKeyPrefix, code)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistKey, jti)
}
