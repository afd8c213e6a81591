package middleware

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"montoit/internal/common"

	"github.com/labstack/echo/v4"
)

// APIVersion describes one published version of the API
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // active, deprecated
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware stamps responses with the API version and rejects unknown ones
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
}

func NewVersionMiddleware(build string) *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Mon Toit API " + build},
		},
		defaultVersion: "v1",
	}
}

// Deprecate marks version as deprecated until sunset
func (vm *VersionMiddleware) Deprecate(version string, sunset time.Time, message string) {
	v := vm.supportedVersions[version]
	v.Version = version
	v.Status = "deprecated"
	v.SunsetDate = &sunset
	v.Message = message
	vm.supportedVersions[version] = v
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Response().Header()
			header.Set("X-API-Version", version)

			if ver, ok := vm.supportedVersions[version]; ok {
				if ver.Status == "deprecated" && ver.SunsetDate != nil {
					header.Set("X-API-Deprecated", "true")
					header.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
					header.Set("Warning", fmt.Sprintf("299 montoit \"This API version is deprecated and will be removed on %s\"", ver.SunsetDate.Format(time.DateOnly)))
				}
			}
			return next(c)
		}
	}
}

// APIVersionResolver stores the requested version and rejects unsupported ones
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set("api_version", vm.defaultVersion)
				return next(c)
			}
			if _, ok := vm.supportedVersions[version]; !ok {
				return common.NewError(common.KindNotFound,
					"Unsupported API version, supported: "+strings.Join(vm.SupportedVersions(), ", "), nil)
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// extractVersionFromPath returns "v2" for /v2/..., empty when the path is unversioned
func extractVersionFromPath(path string) string {
	segment := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	if len(segment) < 2 || segment[0] != 'v' {
		return ""
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return segment
}

// SupportedVersions lists the versions still served
func (vm *VersionMiddleware) SupportedVersions() []string {
	versions := make([]string, 0, len(vm.supportedVersions))
	for version := range vm.supportedVersions {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}
