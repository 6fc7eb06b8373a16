package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akeren/clothiq-api/pkg/ratelimit"
)

func normalizePath(controller *RESTController, relativePath string) string {
	path := controller.mountPoint
	if relativePath != "" {
		path = path + "/" + relativePath
	}

	path = strings.ReplaceAll("/"+path, "//", "/")
	path = strings.ReplaceAll(path, "//", "/")

	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func routeKey(path, method string) string {
	return method + "-" + path
}

func (routerService *RouterService) bindRoute(controller *RESTController, path, method string, limiter ratelimit.Limiter) {
	key := routeKey(path, method)
	if other, found := routerService.handlerToControllerMap[key]; found {
		panic(fmt.Sprintf("A handler is already registered for %s %s by controller '%s'", method, path, other.name))
	}

	routerService.handlerToControllerMap[key] = controller
	routerService.bindOverrideRateLimiter(key, limiter)
}

func (routerService *RouterService) bindOverrideRateLimiter(key string, limiter ratelimit.Limiter) {
	if limiter == nil {
		return
	}
	if _, found := routerService.rateLimitOverrides[key]; found {
		panic(fmt.Sprintf("A rate limiter is already registered for '%s'", key))
	}

	routerService.rateLimitOverrides[key] = limiter
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			GetLogger(c).Error("Handler returned a nil result", "path", c.FullPath())
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("An unexpected error occurred").ToJSON())
			return
		}

		c.JSON(result.StatusCode, result.ToJSON())
	}
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: strings.ReplaceAll("/"+mountPoint, "//", "/"),
		prepare:    prepare,
	}
}

// NewVersionedRESTController mounts under "/<version>/<mountPoint>".
func NewVersionedRESTController(name, version, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: strings.ReplaceAll("/"+version+"/"+mountPoint, "//", "/"),
		version:    version,
		prepare:    prepare,
	}
}

// RateLimitWith applies limiter to every handler of the controller that has
// no limiter of its own.
func (controller *RESTController) RateLimitWith(routerService *RouterService, limiter ratelimit.Limiter) *RESTController {
	routerService.bindOverrideRateLimiter(controller.mountPoint, limiter)
	return controller
}

func (routerService *RouterService) addHandler(
	method string,
	controller *RESTController,
	limiter ratelimit.Limiter,
	path string,
	handler HandlerFunction,
	middlewares []MiddlewareFunc,
) {
	controller.handlerCount++
	fullPath := normalizePath(controller, path)
	routerService.bindRoute(controller, fullPath, method, limiter)
	routerService.engine.Handle(method, fullPath, append(middlewares, createHandler(handler))...)
	routerService.logger.Debug("Handler registered", "method", method, "path", fullPath)
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.Limiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodPost, controller, limiter, path, handler, middlewares)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.Limiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodGet, controller, limiter, path, handler, middlewares)
}
