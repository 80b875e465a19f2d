package auth

const (
	PermGigsWrite          = "gigs.write"
	PermGigsManage         = "gigs.manage"
	PermApplicationsApply  = "applications.apply"
	PermApplicationsReview = "applications.review"
	PermCompletionsRead    = "completions.read"
	PermCompletionsWrite   = "completions.write"
	PermCompletionsDispute = "completions.dispute"
	PermPaymentsManage     = "payments.manage"
	PermPayoutsOnboard     = "payouts.onboard"
	PermRatingsWrite       = "ratings.write"
	PermNotificationsRead  = "notifications.read"
	PermUsersManage        = "users.manage"
	PermEmployersManage    = "employers.manage"
	PermDashboardRead      = "dashboard.read"
	PermAuditRead          = "audit.read"
	PermAdminsManage       = "admins.manage"
)

var DefaultPermissions = []string{
	PermGigsWrite,
	PermGigsManage,
	PermApplicationsApply,
	PermApplicationsReview,
	PermCompletionsRead,
	PermCompletionsWrite,
	PermCompletionsDispute,
	PermPaymentsManage,
	PermPayoutsOnboard,
	PermRatingsWrite,
	PermNotificationsRead,
	PermUsersManage,
	PermEmployersManage,
	PermDashboardRead,
	PermAuditRead,
	PermAdminsManage,
}

// RolePermissions maps authorization subjects to their grants. super_admin also inherits admin.
var RolePermissions = map[string][]string{
	RoleUser: {
		PermApplicationsApply,
		PermCompletionsRead,
		PermCompletionsDispute,
		PermPayoutsOnboard,
		PermRatingsWrite,
		PermNotificationsRead,
	},
	RoleEmployer: {
		PermGigsWrite,
		PermApplicationsReview,
		PermCompletionsRead,
		PermCompletionsWrite,
		PermCompletionsDispute,
		PermRatingsWrite,
		PermNotificationsRead,
	},
	AdminRoleStandard: {
		PermGigsManage,
		PermCompletionsRead,
		PermPaymentsManage,
		PermNotificationsRead,
		PermUsersManage,
		PermEmployersManage,
		PermDashboardRead,
		PermAuditRead,
	},
	AdminRoleSuper: {
		PermAdminsManage,
	},
}
