// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic    SecurityLevel = iota // No authentication
	SecuritySignature                      // Authenticated by the payment processor signature
	SecurityAccess                         // Access token required
)

// Route names used by the HTTP router
const (
	RouteHealth               = "Health"
	RouteCreateBooking        = "CreateBooking"
	RouteListBookings         = "ListBookings"
	RouteGetBooking           = "GetBooking"
	RouteTransitionBooking    = "TransitionBooking"
	RouteCreatePaymentHold    = "CreatePaymentHold"
	RouteConfirmPayment       = "ConfirmPayment"
	RouteListMessages         = "ListMessages"
	RoutePostMessage          = "PostMessage"
	RouteListReviews          = "ListReviews"
	RouteSubmitReview         = "SubmitReview"
	RouteListNotifications    = "ListNotifications"
	RouteMarkNotificationRead = "MarkNotificationRead"
	RoutePaymentWebhook       = "PaymentWebhook"
)

// Full method names served by the gRPC server
const (
	MethodHealthCheck       = "/grpc.health.v1.Health/Check"
	MethodHealthWatch       = "/grpc.health.v1.Health/Watch"
	MethodHealthList        = "/grpc.health.v1.Health/List"
	MethodReflectionV1      = "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo"
	MethodReflectionV1Alpha = "/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo"
)

// EndpointSecurityConfig maps HTTP route names and gRPC full method names to their
// required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	RouteHealth: SecurityPublic,

	// gRPC health and reflection - Public
	MethodHealthCheck:       SecurityPublic,
	MethodHealthWatch:       SecurityPublic,
	MethodHealthList:        SecurityPublic,
	MethodReflectionV1:      SecurityPublic,
	MethodReflectionV1Alpha: SecurityPublic,

	// Payment processor webhooks carry their own signature
	RoutePaymentWebhook: SecuritySignature,

	// Bookings - Access Protected
	RouteCreateBooking:     SecurityAccess,
	RouteListBookings:      SecurityAccess,
	RouteGetBooking:        SecurityAccess,
	RouteTransitionBooking: SecurityAccess,
	RouteCreatePaymentHold: SecurityAccess,
	RouteConfirmPayment:    SecurityAccess,

	// Messages, reviews and notifications - Access Protected
	RouteListMessages:         SecurityAccess,
	RoutePostMessage:          SecurityAccess,
	RouteListReviews:          SecurityAccess,
	RouteSubmitReview:         SecurityAccess,
	RouteListNotifications:    SecurityAccess,
	RouteMarkNotificationRead: SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
