package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/propertyhub-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/propertyhub-backend/api/controllers/analytics"
	"github.com/angelmondragon/propertyhub-backend/api/middleware"
	"github.com/angelmondragon/propertyhub-backend/internal/accounting"
	"github.com/angelmondragon/propertyhub-backend/internal/agencies"
	"github.com/angelmondragon/propertyhub-backend/internal/analytics"
	"github.com/angelmondragon/propertyhub-backend/internal/appointments"
	"github.com/angelmondragon/propertyhub-backend/internal/auth"
	"github.com/angelmondragon/propertyhub-backend/internal/commissions"
	"github.com/angelmondragon/propertyhub-backend/internal/contracts"
	"github.com/angelmondragon/propertyhub-backend/internal/leads"
	"github.com/angelmondragon/propertyhub-backend/internal/notifications"
	"github.com/angelmondragon/propertyhub-backend/internal/offers"
	"github.com/angelmondragon/propertyhub-backend/internal/permissions"
	"github.com/angelmondragon/propertyhub-backend/internal/presentationcards"
	"github.com/angelmondragon/propertyhub-backend/internal/properties"
	"github.com/angelmondragon/propertyhub-backend/internal/propertystaff"
	"github.com/angelmondragon/propertyhub-backend/internal/serviceproviders"
	"github.com/angelmondragon/propertyhub-backend/internal/users"
	"github.com/angelmondragon/propertyhub-backend/pkg/auth/session"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/propertyhub-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs:
// idempotency replay plus the fixed-window rate limiters.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the router wires. Nil services surface as 500s
// from their handlers rather than panics.
type Deps struct {
	Pingers        map[string]controllers.Pinger
	Redis          RedisStore
	Sessions       session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth          auth.Service
	Register      auth.RegisterService
	AdminRegister auth.AdminRegisterService
	Users         users.Service
	Permissions   permissions.Service
	Agencies      agencies.Service
	Properties    properties.Service
	Staff         propertystaff.Service
	Appointments  appointments.Service
	Leads         leads.Service
	Offers        offers.Service
	Contracts     contracts.Service
	Commissions   commissions.Service
	Accounting    accounting.Service
	Cards         presentationcards.Service
	Providers     serviceproviders.Service
	Notifications notifications.Service
	Analytics     analytics.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.PublicURL),
	)

	var limiter interface {
		FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	}
	if deps.Redis != nil {
		limiter = deps.Redis
	}
	loginLimit := middleware.AuthRateLimit(middleware.LoginPolicy(cfg.AuthRateLimit), limiter, logg)
	registerLimit := middleware.AuthRateLimit(middleware.RegisterPolicy(cfg.AuthRateLimit), limiter, logg)

	var idemStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		idemStore = deps.Redis
	}
	// authenticated applies the shared stack of every private surface.
	authenticated := func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		if deps.Redis != nil {
			r.Use(middleware.RateLimit(deps.Redis, logg))
		}
		r.Use(middleware.Idempotency(idemStore, logg))
	}
	perm := func(p enums.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(deps.Permissions, logg, p)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/properties/search", controllers.SearchProperties(deps.Properties, logg))
		r.Get("/properties/{slug}", controllers.PublicPropertyBySlug(deps.Properties, logg))
		r.Get("/cards/{token}", controllers.PublicPresentationCard(deps.Cards, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))
		r.With(loginLimit).Post("/login", controllers.AuthLogin(deps.Auth, cfg.Cookie, logg))
		r.With(registerLimit).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, cfg.Cookie, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, cfg.Cookie, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.Cookie, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).Get("/me", controllers.AuthMe(deps.Auth, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.AdminAuthRegister(deps.AdminRegister, deps.Auth, cfg.Cookie, logg))
		}
		r.With(loginLimit).Post("/login", controllers.AdminAuthLogin(deps.Auth, cfg.Cookie, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		authenticated(r)
		mountCore(r, deps, logg)
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		authenticated(r)
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		mountAdmin(r, deps, logg, perm)
	})

	r.Route("/api/external/v1", func(r chi.Router) {
		authenticated(r)
		r.Use(middleware.RequireRole(logg, enums.UserRoleExternalAgent))
		r.Get("/ping", controllers.ScopedPing("external"))
		r.Get("/agency", controllers.MyAgency(deps.Agencies, logg))
		r.Route("/leads", func(r chi.Router) {
			r.Post("/", controllers.RegisterLead(deps.Leads, logg))
			r.Get("/", controllers.ListLeads(deps.Leads, logg))
			r.Get("/{leadId}", controllers.GetLead(deps.Leads, logg))
		})
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/records", controllers.ListCommissionRecords(deps.Accounting, controllers.LedgerOwned, logg))
			r.Get("/summary", controllers.PeriodSummary(deps.Accounting, controllers.LedgerOwned, logg))
			r.Get("/payments", controllers.ListCommissionPayments(deps.Accounting, controllers.LedgerOwned, logg))
			r.Get("/statement", controllers.CommissionStatementPDF(deps.Accounting, controllers.LedgerOwned, logg))
		})
		r.Get("/properties", controllers.ListProperties(deps.Properties, logg))
		r.Get("/properties/{propertyId}", controllers.GetProperty(deps.Properties, logg))
	})

	r.Route("/api/tenant/v1", func(r chi.Router) {
		authenticated(r)
		r.Use(middleware.RequireRole(logg, enums.UserRoleTenant, enums.UserRoleClient))
		r.Get("/ping", controllers.ScopedPing("tenant"))
		r.Get("/appointments", controllers.ListAppointments(deps.Appointments, logg))
		r.Get("/appointments/{appointmentId}", controllers.GetAppointment(deps.Appointments, logg))
		r.Post("/appointments/{appointmentId}/cancel", controllers.CancelAppointment(deps.Appointments, logg))
		r.Route("/offers", func(r chi.Router) {
			r.Post("/", controllers.MakeOffer(deps.Offers, logg))
			r.Get("/", controllers.ListOffers(deps.Offers, logg))
			r.Get("/{offerId}", controllers.GetOffer(deps.Offers, logg))
			r.Post("/{offerId}/withdraw", controllers.WithdrawOffer(deps.Offers, logg))
		})
		r.Get("/contracts", controllers.ListContracts(deps.Contracts, logg))
		r.Get("/contracts/{contractId}", controllers.GetContract(deps.Contracts, logg))
		r.Post("/contracts/{contractId}/sign", controllers.SignContract(deps.Contracts, logg))
		r.Get("/service-providers", controllers.ListServiceProviders(deps.Providers, logg))
	})

	return r
}

// mountCore registers the routes every authenticated role reaches. The
// services apply the per-role rules.
func mountCore(r chi.Router, deps Deps, logg *logger.Logger) {
	r.Get("/ping", controllers.ScopedPing("private"))

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
		r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
	})

	r.Route("/properties", func(r chi.Router) {
		r.Post("/", controllers.CreateProperty(deps.Properties, logg))
		r.Get("/", controllers.ListProperties(deps.Properties, logg))
		r.Route("/{propertyId}", func(r chi.Router) {
			r.Get("/", controllers.GetProperty(deps.Properties, logg))
			r.Patch("/", controllers.UpdateProperty(deps.Properties, logg))
			r.Post("/actions/{action}", controllers.TransitionProperty(deps.Properties, logg))
			r.Post("/media/upload-url", controllers.CreatePropertyUploadURL(deps.Properties, logg))
			r.Post("/media", controllers.AttachPropertyMedia(deps.Properties, logg))
			r.Get("/media", controllers.ListPropertyMedia(deps.Properties, logg))
			r.Put("/media/order", controllers.ReorderPropertyMedia(deps.Properties, logg))
			r.Delete("/media/{mediaId}", controllers.DeletePropertyMedia(deps.Properties, logg))
			r.Get("/staff", controllers.ListPropertyStaff(deps.Staff, logg))
		})
	})
	r.Get("/staff/properties", controllers.ListStaffProperties(deps.Staff, logg))

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", controllers.ScheduleAppointment(deps.Appointments, logg))
		r.Get("/", controllers.ListAppointments(deps.Appointments, logg))
		r.Route("/{appointmentId}", func(r chi.Router) {
			r.Get("/", controllers.GetAppointment(deps.Appointments, logg))
			r.Post("/confirm", controllers.ConfirmAppointment(deps.Appointments, logg))
			r.Post("/complete", controllers.CompleteAppointment(deps.Appointments, logg))
			r.Post("/no-show", controllers.NoShowAppointment(deps.Appointments, logg))
			r.Post("/cancel", controllers.CancelAppointment(deps.Appointments, logg))
			r.Post("/reschedule", controllers.RescheduleAppointment(deps.Appointments, logg))
		})
	})

	r.Route("/leads", func(r chi.Router) {
		r.Post("/", controllers.RegisterLead(deps.Leads, logg))
		r.Get("/", controllers.ListLeads(deps.Leads, logg))
		r.Get("/{leadId}", controllers.GetLead(deps.Leads, logg))
		r.Post("/{leadId}/advance", controllers.AdvanceLead(deps.Leads, logg))
	})

	r.Route("/offers", func(r chi.Router) {
		r.Post("/", controllers.MakeOffer(deps.Offers, logg))
		r.Get("/", controllers.ListOffers(deps.Offers, logg))
		r.Route("/{offerId}", func(r chi.Router) {
			r.Get("/", controllers.GetOffer(deps.Offers, logg))
			r.Post("/counter", controllers.CounterOffer(deps.Offers, logg))
			r.Post("/accept", controllers.AcceptOffer(deps.Offers, logg))
			r.Post("/reject", controllers.RejectOffer(deps.Offers, logg))
			r.Post("/withdraw", controllers.WithdrawOffer(deps.Offers, logg))
		})
	})

	r.Route("/contracts", func(r chi.Router) {
		r.Post("/", controllers.CreateContract(deps.Contracts, logg))
		r.Get("/", controllers.ListContracts(deps.Contracts, logg))
		r.Route("/{contractId}", func(r chi.Router) {
			r.Get("/", controllers.GetContract(deps.Contracts, logg))
			r.Post("/send", controllers.SendContractForSignature(deps.Contracts, logg))
			r.Post("/sign", controllers.SignContract(deps.Contracts, logg))
			r.Post("/cancel", controllers.CancelContract(deps.Contracts, logg))
			r.Post("/complete", controllers.CompleteContract(deps.Contracts, logg))
			r.Post("/pdf", controllers.RenderContractPDF(deps.Contracts, logg))
		})
	})

	r.Route("/cards", func(r chi.Router) {
		r.Post("/", controllers.CreatePresentationCard(deps.Cards, logg))
		r.Get("/", controllers.ListPresentationCards(deps.Cards, logg))
		r.Get("/{cardId}", controllers.GetPresentationCard(deps.Cards, logg))
		r.Delete("/{cardId}", controllers.RevokePresentationCard(deps.Cards, logg))
		r.Get("/{cardId}/pdf", controllers.PresentationCardPDF(deps.Cards, logg))
	})

	r.Route("/commissions", func(r chi.Router) {
		r.Get("/records", controllers.ListCommissionRecords(deps.Accounting, controllers.LedgerOwned, logg))
		r.Get("/summary", controllers.PeriodSummary(deps.Accounting, controllers.LedgerOwned, logg))
		r.Get("/payments", controllers.ListCommissionPayments(deps.Accounting, controllers.LedgerOwned, logg))
		r.Get("/statement", controllers.CommissionStatementPDF(deps.Accounting, controllers.LedgerOwned, logg))
	})

	r.Get("/service-providers", controllers.ListServiceProviders(deps.Providers, logg))
	r.Get("/service-providers/{providerId}", controllers.GetServiceProvider(deps.Providers, logg))
}

func mountAdmin(r chi.Router, deps Deps, logg *logger.Logger, perm func(enums.Permission) func(http.Handler) http.Handler) {
	r.Get("/ping", controllers.ScopedPing("admin"))
	r.Get("/analytics/dashboard", analyticscontrollers.Dashboard(deps.Analytics, logg))

	r.Route("/users", func(r chi.Router) {
		r.Use(perm(enums.PermissionUsersManage))
		r.Post("/", controllers.AdminCreateUser(deps.Users, logg))
		r.Get("/", controllers.AdminListUsers(deps.Users, logg))
		r.Route("/{userId}", func(r chi.Router) {
			r.Get("/", controllers.AdminGetUser(deps.Users, logg))
			r.Patch("/", controllers.AdminUpdateUser(deps.Users, logg))
			r.Put("/active", controllers.AdminSetUserActive(deps.Users, logg))
			r.Get("/permissions", controllers.AdminListUserPermissions(deps.Permissions, logg))
			r.Post("/permissions", controllers.AdminGrantPermission(deps.Permissions, logg))
			r.Delete("/permissions/{permission}", controllers.AdminRevokePermission(deps.Permissions, logg))
			r.Get("/properties", controllers.ListStaffProperties(deps.Staff, logg))
		})
	})
	r.Get("/permissions", controllers.PermissionCatalog(deps.Permissions))

	r.Route("/agencies", func(r chi.Router) {
		r.Use(perm(enums.PermissionUsersManage))
		r.Post("/", controllers.AdminCreateAgency(deps.Agencies, logg))
		r.Get("/", controllers.AdminListAgencies(deps.Agencies, logg))
		r.Route("/{agencyId}", func(r chi.Router) {
			r.Get("/", controllers.GetAgency(deps.Agencies, logg))
			r.Patch("/", controllers.AdminUpdateAgency(deps.Agencies, logg))
			r.Put("/active", controllers.AdminSetAgencyActive(deps.Agencies, logg))
			r.Delete("/", controllers.AdminDeleteAgency(deps.Agencies, logg))
			r.Get("/staff", controllers.AgencyStaff(deps.Agencies, logg))
		})
	})

	r.Route("/properties", func(r chi.Router) {
		r.Get("/", controllers.ListProperties(deps.Properties, logg))
		r.With(perm(enums.PermissionPropertiesApprove)).Post("/{propertyId}/actions/{action}", controllers.TransitionProperty(deps.Properties, logg))
		r.Post("/{propertyId}/staff", controllers.AssignPropertyStaff(deps.Staff, logg))
		r.Delete("/{propertyId}/staff/{userId}", controllers.RemovePropertyStaff(deps.Staff, logg))
		r.Post("/search/reindex", controllers.AdminReindexProperties(deps.Properties, logg))
	})

	r.With(perm(enums.PermissionAppointmentsAssign)).Post("/appointments/{appointmentId}/concierge", controllers.AssignAppointmentConcierge(deps.Appointments, logg))
	r.With(perm(enums.PermissionLeadsManage)).Post("/leads/{leadId}/assign", controllers.AssignLead(deps.Leads, logg))

	r.Route("/commissions", func(r chi.Router) {
		r.Use(perm(enums.PermissionCommissionsManage))
		r.Post("/configs", controllers.CreateCommissionConfig(deps.Commissions, logg))
		r.Get("/configs", controllers.ListCommissionConfigs(deps.Commissions, logg))
		r.Patch("/configs/{tier}/{configId}", controllers.UpdateCommissionConfig(deps.Commissions, logg))
		r.Delete("/configs/{tier}/{configId}", controllers.DeleteCommissionConfig(deps.Commissions, logg))
		r.Get("/preview", controllers.PreviewCommission(deps.Commissions, logg))
	})

	r.Route("/accounting", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(perm(enums.PermissionAccountingView))
			r.Get("/records", controllers.ListCommissionRecords(deps.Accounting, controllers.LedgerAll, logg))
			r.Get("/summary", controllers.PeriodSummary(deps.Accounting, controllers.LedgerAll, logg))
			r.Get("/payments", controllers.ListCommissionPayments(deps.Accounting, controllers.LedgerAll, logg))
			r.Get("/statement", controllers.CommissionStatementPDF(deps.Accounting, controllers.LedgerAll, logg))
		})
		r.With(perm(enums.PermissionAccountingExport)).Get("/records/export", controllers.ExportCommissionRecords(deps.Accounting, controllers.LedgerAll, logg))
		r.Group(func(r chi.Router) {
			r.Use(perm(enums.PermissionAccountingPay))
			r.Post("/records/approve", controllers.ApproveCommissionRecords(deps.Accounting, logg))
			r.Post("/records/{recordId}/cancel", controllers.CancelCommissionRecord(deps.Accounting, logg))
			r.Post("/payments", controllers.RecordCommissionPayment(deps.Accounting, logg))
		})
	})

	r.Route("/service-providers", func(r chi.Router) {
		r.Post("/", controllers.AdminCreateServiceProvider(deps.Providers, logg))
		r.Get("/", controllers.ListServiceProviders(deps.Providers, logg))
		r.Route("/{providerId}", func(r chi.Router) {
			r.Get("/", controllers.GetServiceProvider(deps.Providers, logg))
			r.Patch("/", controllers.AdminUpdateServiceProvider(deps.Providers, logg))
			r.Delete("/", controllers.AdminDeleteServiceProvider(deps.Providers, logg))
			r.Post("/services", controllers.AdminAddProviderService(deps.Providers, logg))
			r.Put("/services/{serviceId}", controllers.AdminUpdateProviderService(deps.Providers, logg))
			r.Delete("/services/{serviceId}", controllers.AdminRemoveProviderService(deps.Providers, logg))
		})
	})
}
