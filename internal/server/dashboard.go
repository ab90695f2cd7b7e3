package server

import (
	"net/http"
	"strconv"

	"foodsaver/pkg/types"
)

// handleDashboard renders the role specific view. When the request carries
// lat/lng query params the actor's location is updated first, so proximity
// matching always works off the latest reported position.
func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	if actor.Role == types.RoleAdmin {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr == nil && lngErr == nil {
		if err := s.users.UpdateLocation(ctx, actor.ID, lat, lng); err != nil {
			s.logger.WithError(err).Error("failed to update actor location")
		} else {
			actor.LocationLat = &lat
			actor.LocationLng = &lng
		}
	}

	data := &types.DashboardPageData{
		BasePageData: types.BasePageData{
			Title:  "Dashboard",
			Notice: query.Get("notice"),
			Error:  query.Get("error"),
		},
		User: actor,
	}

	switch actor.Role {
	case types.RoleDonor:
		donations, err := s.donations.DonationsByDonor(ctx, actor.ID)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch donor donations")
			s.internalServerError(w)
			return
		}
		data.MyDonations = donations

	case types.RoleNGO:
		radius := s.config.MatchRadiusKm
		if v, err := strconv.ParseFloat(query.Get("radius"), 64); err == nil && v > 0 {
			radius = v
		}

		matches, err := s.matching.NearbyPending(ctx, actor.Location(), radius)
		if err != nil {
			s.logger.WithError(err).Error("failed to match pending donations")
			s.internalServerError(w)
			return
		}

		data.RadiusKm = radius
		data.Matches = make([]types.DonationMatch, 0, len(matches))
		for _, m := range matches {
			data.Matches = append(data.Matches, types.DonationMatch{
				Donation:    m.Donation,
				DistanceKm:  m.DistanceKm,
				HasDistance: m.HasDistance,
			})
		}

	case types.RoleVolunteer:
		unassigned, err := s.donations.AcceptedWithoutVolunteer(ctx)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch unassigned donations")
			s.internalServerError(w)
			return
		}

		tasks, err := s.pickups.TasksByVolunteer(ctx, actor.ID)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch volunteer tasks")
			s.internalServerError(w)
			return
		}

		events, err := s.rewards.EventsByUser(ctx, actor.ID)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch reward events")
			s.internalServerError(w)
			return
		}

		data.UnassignedDonations = unassigned
		data.Tasks = tasks
		data.RewardEvents = events
	}

	err = s.renderTemplate(w, r, "page.dashboard", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render dashboard")
		s.internalServerError(w)
		return
	}
}
