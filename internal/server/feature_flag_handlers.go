package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags handles GET /api/feature-flags
// @Summary Show configured feature flags
// @Description Raw flag values and their evaluation for the calling admin.
// @Tags admin
// @Security TokenAuth
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Failure 403 {object} models.ErrorResponse
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	raw := map[string]string{}
	evaluated := map[string]bool{}
	if s.featureFlags != nil {
		raw = s.featureFlags.Raw()
		evaluated = s.featureFlags.Snapshot(currentUserID(c))
	}
	return c.JSON(fiber.Map{
		"raw":       raw,
		"evaluated": evaluated,
		"realtime":  s.hub != nil,
	})
}
