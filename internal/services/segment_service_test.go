package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSegmentService_CreateSegment(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewSegmentService(db, nil, logrus.New())

	segment, err := svc.CreateSegment(context.Background(), &SegmentCreateRequest{
		Name:        "major-donors",
		Description: "lifetime total above threshold",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if segment.ID == "" {
		t.Error("segment ID not assigned")
	}

	if _, err := svc.CreateSegment(context.Background(), &SegmentCreateRequest{Name: "major-donors"}); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestSegmentService_AddMember(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewSegmentService(db, nil, logrus.New())

	if _, err := svc.CreateSegment(context.Background(), &SegmentCreateRequest{Name: "lapsed"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.AddMember(context.Background(), "lapsed", "d1", "rule-9"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	// adding twice is a no-op
	if err := svc.AddMember(context.Background(), "lapsed", "d1", "rule-9"); err != nil {
		t.Fatalf("repeat add: %v", err)
	}

	members, err := svc.Members(context.Background(), "lapsed")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0] != "d1" {
		t.Errorf("members = %v", members)
	}

	if err := svc.AddMember(context.Background(), "", "d1", ""); err == nil {
		t.Error("expected error for empty segment name")
	}
	if err := svc.AddMember(context.Background(), "lapsed", "", ""); err == nil {
		t.Error("expected error for empty donor id")
	}
}

func TestSegmentService_AddMemberAutoCreatesSegment(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewSegmentService(db, nil, logrus.New())

	if err := svc.AddMember(context.Background(), "first-time", "d2", "rule-1"); err != nil {
		t.Fatalf("add member: %v", err)
	}

	segment, err := svc.GetSegmentByName(context.Background(), "first-time")
	if err != nil {
		t.Fatalf("segment not auto-created: %v", err)
	}
	if segment.Name != "first-time" {
		t.Errorf("segment name = %s", segment.Name)
	}
}

func TestSegmentService_RemoveMember(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewSegmentService(db, nil, logrus.New())

	if err := svc.AddMember(context.Background(), "weekly", "d3", ""); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := svc.RemoveMember(context.Background(), "weekly", "d3"); err != nil {
		t.Fatalf("remove member: %v", err)
	}

	members, err := svc.Members(context.Background(), "weekly")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected empty segment, got %v", members)
	}

	// unknown membership and unknown segment are both no-ops
	if err := svc.RemoveMember(context.Background(), "weekly", "d3"); err != nil {
		t.Errorf("repeat remove: %v", err)
	}
	if err := svc.RemoveMember(context.Background(), "no-such-segment", "d3"); err != nil {
		t.Errorf("unknown segment remove: %v", err)
	}
}

func TestSegmentService_ListSegments(t *testing.T) {
	db := newServiceTestDB(t)
	svc := NewSegmentService(db, nil, logrus.New())

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := svc.CreateSegment(context.Background(), &SegmentCreateRequest{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	segments, err := svc.ListSegments(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(segments) != 2 || segments[0].Name != "alpha" {
		t.Errorf("segments not sorted by name: %+v", segments)
	}
}
