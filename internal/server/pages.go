package server

import (
	"net/http"
	"net/url"

	"foodsaver/pkg/types"
)

// mealsPerDonation is the estimate used for the public impact counter.
const mealsPerDonation = 10

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	data := &types.HomePageData{
		BasePageData: types.BasePageData{Title: "Save Food, Serve Hope"},
	}

	total, err := s.donations.CountDonations(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to count donations")
		s.internalServerError(w)
		return
	}

	delivered, err := s.donations.CountDonationsByStatus(ctx, types.DonationStatusDelivered)
	if err != nil {
		s.logger.WithError(err).Error("failed to count delivered donations")
		s.internalServerError(w)
		return
	}

	data.TotalDonations = total
	data.DeliveredDonations = delivered
	data.MealsServed = total * mealsPerDonation

	err = s.renderTemplate(w, r, "page.home", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render home page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, notice string) {
	v := url.Values{}
	v.Set("notice", notice)
	http.Redirect(w, r, "/dashboard?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	v := url.Values{}
	v.Set("error", message)
	http.Redirect(w, r, "/dashboard?"+v.Encode(), http.StatusSeeOther)
}
