package domain

import "fmt"

// PlatformEvent is the closed set of cross-cutting events that fan out as
// notifications. Collaborators (applications, reviews, moderation,
// verification) publish one of these variants instead of writing
// notification rows themselves, so the persist-then-push invariant holds in
// a single place.
type PlatformEvent interface {
	// RecipientID identifies the single user the resulting notification
	// is addressed to.
	RecipientID() string
}

// ApplicationSubmitted fires when someone applies to a listing. The listing
// owner is notified.
type ApplicationSubmitted struct {
	OwnerID       string
	ApplicantID   string
	ApplicantName string
	ListingTitle  string
	ApplicationID string
}

func (e ApplicationSubmitted) RecipientID() string { return e.OwnerID }

// ApplicationAccepted fires when the owner accepts an application. The
// applicant is notified; ResponderComment is the owner's optional message.
type ApplicationAccepted struct {
	ApplicantID      string
	OwnerID          string
	OwnerName        string
	ListingTitle     string
	ResponderComment string
	ApplicationID    string
}

func (e ApplicationAccepted) RecipientID() string { return e.ApplicantID }

// ApplicationRejected mirrors ApplicationAccepted for a refusal.
type ApplicationRejected struct {
	ApplicantID      string
	OwnerID          string
	OwnerName        string
	ListingTitle     string
	ResponderComment string
	ApplicationID    string
}

func (e ApplicationRejected) RecipientID() string { return e.ApplicantID }

// ReviewCreated fires when a review is posted about a host.
type ReviewCreated struct {
	HostID       string
	AuthorID     string
	AuthorName   string
	Rating       int
	ListingTitle string
	ReviewID     string
}

func (e ReviewCreated) RecipientID() string { return e.HostID }

// ListingApproved fires when moderation publishes a listing.
type ListingApproved struct {
	OwnerID      string
	ListingTitle string
	ListingID    string
}

func (e ListingApproved) RecipientID() string { return e.OwnerID }

// ListingRejected fires when moderation refuses a listing.
type ListingRejected struct {
	OwnerID      string
	ListingTitle string
	ListingID    string
	Reason       string
}

func (e ListingRejected) RecipientID() string { return e.OwnerID }

// VerificationDecided fires when an identity verification is settled.
type VerificationDecided struct {
	UserID   string
	Approved bool
	Reason   string
}

func (e VerificationDecided) RecipientID() string { return e.UserID }

// ReportResolved fires when an abuse report filed by the recipient has been
// processed by an administrator.
type ReportResolved struct {
	ReporterID string
	Subject    string
	ReportID   string
}

func (e ReportResolved) RecipientID() string { return e.ReporterID }

// SystemNotice is a free-form administrative announcement.
type SystemNotice struct {
	UserID string
	Title  string
	Body   string
	Link   string
}

func (e SystemNotice) RecipientID() string { return e.UserID }

// FromPlatformEvent maps each event variant to exactly one notification,
// filling the title and body templates from the event fields. The type
// switch is exhaustive over the variants above; an unknown variant is a
// programming error and is rejected.
func FromPlatformEvent(e PlatformEvent) (Notification, error) {
	switch evt := e.(type) {
	case ApplicationSubmitted:
		n, err := NewNotification(evt.OwnerID, TypeApplicationSubmitted,
			"New application",
			fmt.Sprintf("%s applied to %q.", evt.ApplicantName, evt.ListingTitle))
		n.SenderID = evt.ApplicantID
		n.RelatedID = evt.ApplicationID
		n.Link = "/applications"
		return n, err
	case ApplicationAccepted:
		body := fmt.Sprintf("Your application for %q was accepted.", evt.ListingTitle)
		if evt.ResponderComment != "" {
			body = fmt.Sprintf("%s Message from %s: %s", body, evt.OwnerName, evt.ResponderComment)
		}
		n, err := NewNotification(evt.ApplicantID, TypeApplicationAccepted, "Application accepted", body)
		n.SenderID = evt.OwnerID
		n.RelatedID = evt.ApplicationID
		n.Link = "/applications"
		return n, err
	case ApplicationRejected:
		body := fmt.Sprintf("Your application for %q was not retained.", evt.ListingTitle)
		if evt.ResponderComment != "" {
			body = fmt.Sprintf("%s Message from %s: %s", body, evt.OwnerName, evt.ResponderComment)
		}
		n, err := NewNotification(evt.ApplicantID, TypeApplicationRejected, "Application rejected", body)
		n.SenderID = evt.OwnerID
		n.RelatedID = evt.ApplicationID
		n.Link = "/applications"
		return n, err
	case ReviewCreated:
		n, err := NewNotification(evt.HostID, TypeNewReview,
			"New review",
			fmt.Sprintf("%s left a %d-star review on %q.", evt.AuthorName, evt.Rating, evt.ListingTitle))
		n.SenderID = evt.AuthorID
		n.RelatedID = evt.ReviewID
		n.Link = "/profile/reviews"
		return n, err
	case ListingApproved:
		n, err := NewNotification(evt.OwnerID, TypeListingApproved,
			"Listing approved",
			fmt.Sprintf("Your listing %q has been approved and is now visible.", evt.ListingTitle))
		n.RelatedID = evt.ListingID
		n.Link = "/listings/" + evt.ListingID
		return n, err
	case ListingRejected:
		body := fmt.Sprintf("Your listing %q was rejected.", evt.ListingTitle)
		if evt.Reason != "" {
			body = fmt.Sprintf("%s Reason: %s", body, evt.Reason)
		}
		n, err := NewNotification(evt.OwnerID, TypeListingRejected, "Listing rejected", body)
		n.RelatedID = evt.ListingID
		return n, err
	case VerificationDecided:
		body := "Your identity has been verified."
		if !evt.Approved {
			body = "Your identity could not be verified."
			if evt.Reason != "" {
				body = fmt.Sprintf("%s Reason: %s", body, evt.Reason)
			}
		}
		n, err := NewNotification(evt.UserID, TypeVerification, "Identity verification", body)
		n.Link = "/profile/verification"
		return n, err
	case ReportResolved:
		n, err := NewNotification(evt.ReporterID, TypeReport,
			"Report processed",
			fmt.Sprintf("Your report about %q has been reviewed by our team.", evt.Subject))
		n.RelatedID = evt.ReportID
		return n, err
	case SystemNotice:
		n, err := NewNotification(evt.UserID, TypeSystem, evt.Title, evt.Body)
		n.Link = evt.Link
		return n, err
	default:
		return Notification{}, fmt.Errorf("unmapped platform event %T", e)
	}
}
