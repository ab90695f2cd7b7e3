package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"foodsaver/internal/events"
	"foodsaver/internal/lifecycle"
	"foodsaver/internal/metrics"
	"foodsaver/internal/utils"
	"foodsaver/pkg/types"

	"github.com/alexedwards/flow"
)

const maxImageBytes = 10 << 20

type uploadDonationForm struct {
	Name                string  `form:"name"`
	FoodType            string  `form:"food_type"`
	Quantity            string  `form:"quantity"`
	Lat                 float64 `form:"lat"`
	Lng                 float64 `form:"lng"`
	Address             string  `form:"address"`
	SpecialInstructions string  `form:"special_instructions"`
}

func (s *Service) handleUploadDonation(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		s.logger.WithError(err).Error("failed to parse donation form")
		s.redirectWithError(w, r, "Could not read the upload form.")
		return
	}

	var form uploadDonationForm
	if err := decoder.Decode(&form, r.MultipartForm.Value); err != nil {
		s.logger.WithError(err).Error("failed to decode donation form")
		s.redirectWithError(w, r, "Could not read the upload form.")
		return
	}

	input := lifecycle.CreateInput{
		Name:                form.Name,
		FoodType:            form.FoodType,
		Quantity:            form.Quantity,
		Lat:                 form.Lat,
		Lng:                 form.Lng,
		Address:             form.Address,
		SpecialInstructions: form.SpecialInstructions,
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()

		key := fmt.Sprintf("donations/%s-%s", utils.NanoID(), header.Filename)
		contentType := header.Header.Get("Content-Type")

		if _, err := s.images.UploadImage(ctx, key, file, contentType); err != nil {
			s.logger.WithError(err).Error("failed to upload donation image")
			s.redirectWithError(w, r, "Image upload failed. Please try again.")
			return
		}

		input.ImageKey = &key
	}

	result, err := s.lifecycle.Create(ctx, actor, input)
	if err != nil {
		var invalid *lifecycle.InvalidInputError
		if errors.As(err, &invalid) {
			s.logger.WithField("field_errors", invalid.Fields).Info("invalid donation input")
			s.redirectWithError(w, r, "Some donation details are invalid. Please review the form.")
			return
		}

		s.logger.WithError(err).Error("failed to create donation")
		s.internalServerError(w)
		return
	}

	if !result.OK() {
		s.redirectWithError(w, r, result.Message)
		return
	}

	s.publishEvent(ctx, "donation.created", result, actor)
	s.redirectWithNotice(w, r, result.Message)
}

func (s *Service) handleDonationDetail(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()
	donationID := flow.Param(ctx, "id")

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	donation, err := s.donations.Donation(ctx, donationID)
	if err != nil {
		if errors.Is(err, types.ErrDonationNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.WithError(err).Error("failed to fetch donation")
		s.internalServerError(w)
		return
	}

	data := &types.DonationDetailPageData{
		BasePageData: types.BasePageData{Title: donation.Name},
		User:         actor,
		Donation:     donation,
	}

	pickup, err := s.pickups.PickupByDonation(ctx, donationID)
	if err != nil && !errors.Is(err, types.ErrPickupNotFound) {
		s.logger.WithError(err).Error("failed to fetch pickup")
		s.internalServerError(w)
		return
	}
	data.Pickup = pickup

	if donation.ImageKey != nil {
		data.ImageURL = s.images.ImageURL(*donation.ImageKey)
	}

	err = s.renderTemplate(w, r, "page.donation-detail", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render donation detail")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handleClaimDonation(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()
	donationID := flow.Param(ctx, "id")

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	result, err := s.lifecycle.Claim(ctx, actor, donationID)
	if err != nil {
		s.logger.WithError(err).Error("failed to claim donation")
		s.internalServerError(w)
		return
	}

	if result.OK() {
		s.publishEvent(ctx, "donation.claimed", result, actor)
	}

	s.redirectWithResult(w, r, result)
}

func (s *Service) handleVolunteerAccept(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()
	donationID := flow.Param(ctx, "id")

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	result, err := s.lifecycle.VolunteerAccept(ctx, actor, donationID)
	if err != nil {
		s.logger.WithError(err).Error("failed to accept pickup task")
		s.internalServerError(w)
		return
	}

	if result.OK() {
		s.publishEvent(ctx, "pickup.volunteer_assigned", result, actor)
	}

	s.redirectWithResult(w, r, result)
}

func (s *Service) handleConfirmPickup(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()
	pickupID := flow.Param(ctx, "id")

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	result, err := s.lifecycle.ConfirmPickup(ctx, actor, pickupID)
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm pickup")
		s.internalServerError(w)
		return
	}

	if result.OK() {
		s.publishEvent(ctx, "pickup.picked_up", result, actor)
	}

	s.redirectWithResult(w, r, result)
}

func (s *Service) handleConfirmDelivery(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()
	pickupID := flow.Param(ctx, "id")

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve actor")
		s.internalServerError(w)
		return
	}

	result, err := s.lifecycle.ConfirmDelivery(ctx, actor, pickupID)
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm delivery")
		s.internalServerError(w)
		return
	}

	if result.OK() {
		s.publishEvent(ctx, "pickup.delivered", result, actor)
	}

	s.redirectWithResult(w, r, result)
}

func (s *Service) redirectWithResult(w http.ResponseWriter, r *http.Request, result *lifecycle.Result) {
	switch result.Outcome {
	case lifecycle.OutcomeOK:
		s.redirectWithNotice(w, r, result.Message)
	case lifecycle.OutcomeNotFound:
		http.NotFound(w, r)
	default:
		s.redirectWithError(w, r, result.Message)
	}
}

// publishEvent streams the transition; failures are logged and dropped so the
// request never depends on the broker.
func (s *Service) publishEvent(ctx context.Context, eventType string, result *lifecycle.Result, actor *types.User) {

	event := events.DonationEvent{
		Type:       eventType,
		ActorID:    actor.ID,
		OccurredAt: time.Now(),
	}
	if result.Donation != nil {
		event.DonationID = result.Donation.ID
	}
	if result.Pickup != nil {
		event.PickupID = result.Pickup.ID
		if event.DonationID == "" {
			event.DonationID = result.Pickup.DonationID
		}
	}

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Error("failed to publish donation event")
		metrics.OperationErrorsTotal.WithLabelValues("publish_event").Inc()
	}
}
