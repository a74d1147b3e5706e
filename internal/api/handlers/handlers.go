package handlers

import (
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/handlers/chain"
	"github/keyless/go-connector/internal/api/handlers/common"
	"github/keyless/go-connector/internal/api/handlers/pin"
	"github/keyless/go-connector/internal/api/handlers/provider"
	"github/keyless/go-connector/internal/api/handlers/session"
	"github/keyless/go-connector/internal/api/handlers/sign"
	"github/keyless/go-connector/internal/api/handlers/transaction"
	"github/keyless/go-connector/internal/api/handlers/wallet"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = append(s.Router.Routes,
		common.GetReadyRoute(s),
		provider.PostRPCRoute(s),
		session.GetSessionRoute(s),
		session.PostLoginRoute(s),
		session.PostLogoutRoute(s),
		session.PostResumeRoute(s),
		chain.GetChainsRoute(s),
		chain.GetFeesRoute(s),
		chain.PostSwitchChainRoute(s),
		wallet.GetAccountsRoute(s),
		wallet.GetBalanceRoute(s),
		wallet.PostSwitchWalletRoute(s),
		transaction.GetPendingRoute(s),
		transaction.GetHashesRoute(s),
		transaction.PostGasRoute(s),
		transaction.PostConfirmRoute(s),
		transaction.PostRejectRoute(s),
		sign.GetPendingRoute(s),
		sign.PostConfirmRoute(s),
		sign.PostRejectRoute(s),
		pin.PostCheckRoute(s),
	)
}
