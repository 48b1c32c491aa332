package httptransport

import "expvar"

var (
	metricAdminUsersCreated      = expvar.NewInt("admin_users_created_total")
	metricAdminTopupTotal        = expvar.NewInt("admin_topup_total")
	metricAdminRoomsCreated      = expvar.NewInt("admin_rooms_created_total")
	metricAdminTournamentCreated = expvar.NewInt("admin_tournaments_created_total")
	metricPublicQueryErrors      = expvar.NewInt("public_query_errors_total")
)
