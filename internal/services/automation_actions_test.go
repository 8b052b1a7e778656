package services

import (
	"context"
	"fmt"
	"testing"

	"donorflow/internal/automation"
	"donorflow/pkg/campaigns"
	"donorflow/pkg/socialcast"

	"github.com/sirupsen/logrus"
)

type fakeSender struct {
	emails []campaigns.SendRequest
	mail   []campaigns.DirectMailRequest
	fail   bool
}

func (f *fakeSender) SendEmail(ctx context.Context, req *campaigns.SendRequest) (*campaigns.SendResult, error) {
	if f.fail {
		return nil, fmt.Errorf("provider down")
	}
	f.emails = append(f.emails, *req)
	return &campaigns.SendResult{MessageID: "m1", Status: "queued"}, nil
}

func (f *fakeSender) SendDirectMail(ctx context.Context, req *campaigns.DirectMailRequest) (*campaigns.DirectMailResult, error) {
	if f.fail {
		return nil, fmt.Errorf("provider down")
	}
	f.mail = append(f.mail, *req)
	return &campaigns.DirectMailResult{PieceID: "p1", Status: "submitted"}, nil
}

func (f *fakeSender) GetTemplate(ctx context.Context, templateID string) (*campaigns.Template, error) {
	return &campaigns.Template{ID: templateID}, nil
}

func (f *fakeSender) HealthCheck(ctx context.Context) error { return nil }

type fakePublisher struct {
	posts []socialcast.PostRequest
}

func (f *fakePublisher) PublishPost(ctx context.Context, req *socialcast.PostRequest) (*socialcast.PostResult, error) {
	f.posts = append(f.posts, *req)
	return &socialcast.PostResult{PostID: "s1", Status: "published"}, nil
}

func (f *fakePublisher) GetEngagement(ctx context.Context, postID string) (*socialcast.Engagement, error) {
	return &socialcast.Engagement{PostID: postID}, nil
}

func (f *fakePublisher) HealthCheck(ctx context.Context) error { return nil }

func TestBuildActionHandlers_SendEmail(t *testing.T) {
	sender := &fakeSender{}
	handlers := BuildActionHandlers(ActionDeps{Campaigns: sender, Logger: logrus.New()})

	h := handlers[automation.ActionSendEmail]
	if h == nil {
		t.Fatal("send_email handler not registered")
	}

	err := h(context.Background(),
		map[string]interface{}{"template": "thank-you"},
		map[string]interface{}{"email": "donor@example.org", "amount": 150.0})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(sender.emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.emails))
	}
	sent := sender.emails[0]
	if sent.To != "donor@example.org" || sent.TemplateID != "thank-you" {
		t.Errorf("unexpected request: %+v", sent)
	}
	if sent.Variables["amount"] != 150.0 {
		t.Error("event payload not passed as template variables")
	}

	// explicit params.to overrides the payload address
	err = h(context.Background(),
		map[string]interface{}{"to": "override@example.org"},
		map[string]interface{}{"email": "donor@example.org"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if sender.emails[1].To != "override@example.org" {
		t.Errorf("params.to not honored: %s", sender.emails[1].To)
	}

	// no recipient anywhere is an action failure
	if err := h(context.Background(), nil, map[string]interface{}{}); err == nil {
		t.Error("expected error without recipient")
	}
}

func TestBuildActionHandlers_SendEmailProviderError(t *testing.T) {
	handlers := BuildActionHandlers(ActionDeps{Campaigns: &fakeSender{fail: true}, Logger: logrus.New()})
	err := handlers[automation.ActionSendEmail](context.Background(),
		map[string]interface{}{"to": "x@example.org"}, nil)
	if err == nil {
		t.Error("provider failure must surface as handler error")
	}
}

func TestBuildActionHandlers_PostSocial(t *testing.T) {
	pub := &fakePublisher{}
	handlers := BuildActionHandlers(ActionDeps{Social: pub, Logger: logrus.New()})

	h := handlers[automation.ActionPostSocial]
	if h == nil {
		t.Fatal("post_social handler not registered")
	}

	err := h(context.Background(), map[string]interface{}{
		"message":  "We hit our campaign goal!",
		"channels": []interface{}{"twitter", "facebook"},
	}, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(pub.posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(pub.posts))
	}
	if len(pub.posts[0].Channels) != 2 {
		t.Errorf("channels not decoded: %v", pub.posts[0].Channels)
	}

	if err := h(context.Background(), map[string]interface{}{}, nil); err == nil {
		t.Error("expected error without a body")
	}
}

func TestBuildActionHandlers_AddToSegment(t *testing.T) {
	db := newServiceTestDB(t)
	segments := NewSegmentService(db, nil, logrus.New())
	handlers := BuildActionHandlers(ActionDeps{Segments: segments, Logger: logrus.New()})

	h := handlers[automation.ActionAddToSegment]
	if h == nil {
		t.Fatal("add_to_segment handler not registered")
	}

	err := h(context.Background(),
		map[string]interface{}{"segment": "first-gift"},
		map[string]interface{}{"donorId": "d1"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	members, err := segments.Members(context.Background(), "first-gift")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0] != "d1" {
		t.Errorf("members = %v", members)
	}

	if err := h(context.Background(), nil, map[string]interface{}{"donorId": "d1"}); err == nil {
		t.Error("expected error without segment name")
	}
	if err := h(context.Background(), map[string]interface{}{"segment": "x"}, nil); err == nil {
		t.Error("expected error without donorId")
	}
}

func TestBuildActionHandlers_UpdateField(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewDonorService(db, nil, logrus.New())
	donor, err := svc.CreateDonor(context.Background(), &DonorCreateRequest{Email: "u@example.org"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	handlers := BuildActionHandlers(ActionDeps{DB: db, Logger: logrus.New()})
	h := handlers[automation.ActionUpdateField]
	if h == nil {
		t.Fatal("update_field handler not registered")
	}

	err = h(context.Background(),
		map[string]interface{}{"field": "tier", "value": "legacy"},
		map[string]interface{}{"donorId": donor.ID})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	got, _ := svc.GetDonorByID(context.Background(), donor.ID)
	if got.Tier != "legacy" {
		t.Errorf("tier = %s, want legacy", got.Tier)
	}

	cases := []struct {
		name    string
		params  map[string]interface{}
		payload map[string]interface{}
	}{
		{"field outside allowlist", map[string]interface{}{"field": "id", "value": "evil"}, map[string]interface{}{"donorId": donor.ID}},
		{"missing value", map[string]interface{}{"field": "tier"}, map[string]interface{}{"donorId": donor.ID}},
		{"missing donorId", map[string]interface{}{"field": "tier", "value": "x"}, nil},
		{"unknown donor", map[string]interface{}{"field": "tier", "value": "x"}, map[string]interface{}{"donorId": "nope"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if err := h(context.Background(), tt.params, tt.payload); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildActionHandlers_MissingDepsSkipRegistration(t *testing.T) {
	handlers := BuildActionHandlers(ActionDeps{Logger: logrus.New()})

	if handlers[automation.ActionWait] == nil {
		t.Error("wait handler must always be registered")
	}
	for _, actionType := range []string{
		automation.ActionSendEmail,
		automation.ActionSendDirectMail,
		automation.ActionPostSocial,
		automation.ActionAddToSegment,
		automation.ActionUpdateField,
	} {
		if handlers[actionType] != nil {
			t.Errorf("%s registered without its dependency", actionType)
		}
	}
}
