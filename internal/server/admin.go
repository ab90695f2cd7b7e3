package server

import (
	"errors"
	"net/http"

	"foodsaver/pkg/types"

	"github.com/alexedwards/flow"
)

const recentListLimit = 20

func (s *Service) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	if actor.Role != types.RoleAdmin {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := &types.AdminPageData{
		BasePageData: types.BasePageData{
			Title:  "Admin",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
		User: actor,
	}

	data.TotalUsers, err = s.users.CountUsers(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to count users")
		s.internalServerError(w)
		return
	}

	data.TotalDonations, err = s.donations.CountDonations(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to count donations")
		s.internalServerError(w)
		return
	}

	data.PendingDonations, err = s.donations.CountDonationsByStatus(ctx, types.DonationStatusPending)
	if err != nil {
		s.logger.WithError(err).Error("failed to count pending donations")
		s.internalServerError(w)
		return
	}

	data.DeliveredDonations, err = s.donations.CountDonationsByStatus(ctx, types.DonationStatusDelivered)
	if err != nil {
		s.logger.WithError(err).Error("failed to count delivered donations")
		s.internalServerError(w)
		return
	}

	data.MealsServed = data.TotalDonations * mealsPerDonation

	data.RecentDonations, err = s.donations.RecentDonations(ctx, recentListLimit)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch recent donations")
		s.internalServerError(w)
		return
	}

	data.RecentUsers, err = s.users.RecentUsers(ctx, recentListLimit)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch recent users")
		s.internalServerError(w)
		return
	}

	err = s.renderTemplate(w, r, "page.admin", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render admin page")
		s.internalServerError(w)
		return
	}
}

// handleToggleFraud flips the fraud flag on a user. Admins cannot flag
// themselves.
func (s *Service) handleToggleFraud(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()
	userID := flow.Param(ctx, "id")

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	if actor.Role != types.RoleAdmin {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if userID == actor.ID {
		http.Redirect(w, r, "/admin?error=You+cannot+flag+your+own+account.", http.StatusSeeOther)
		return
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.WithError(err).Error("failed to fetch user")
		s.internalServerError(w)
		return
	}

	if err := s.users.SetFraudFlag(ctx, userID, !user.IsFraudulent); err != nil {
		s.logger.WithError(err).Error("failed to toggle fraud flag")
		s.internalServerError(w)
		return
	}

	http.Redirect(w, r, "/admin?notice=Fraud+flag+updated.", http.StatusSeeOther)
}
