package testfixtures

import (
	"context"
	"testing"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

type capturingCourseRepo struct {
	created persistence.Course
}

func (c *capturingCourseRepo) CreateCourse(_ context.Context, course persistence.Course) error {
	c.created = course
	return nil
}

func (c *capturingCourseRepo) UpdateCourse(context.Context, persistence.Course) error {
	return nil
}

func (c *capturingCourseRepo) GetCourse(context.Context, string) (persistence.Course, error) {
	return persistence.Course{}, persistence.ErrNotFound
}

func (c *capturingCourseRepo) ListCourses(context.Context) ([]persistence.Course, error) {
	return nil, nil
}

func (c *capturingCourseRepo) DeleteCourse(context.Context, string) error {
	return nil
}

func TestServiceFactoryNewCourseService(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("course")))
	repo := &capturingCourseRepo{}

	svc := factory.NewCourseService(CourseServiceDeps{Courses: repo})
	staff := NewAccountFixture(WithStaffRole())

	course, err := svc.CreateCourse(context.Background(), application.CreateCourseParams{
		Principal: staff.Principal(),
		Input:     NewCourseFixture().Input(),
	})
	if err != nil {
		t.Fatalf("CreateCourse returned error: %v", err)
	}

	if course.ID != "course-1" {
		t.Errorf("expected deterministic id course-1, got %q", course.ID)
	}
	if !course.CreatedAt.Equal(factory.Clock.Now()) {
		t.Errorf("expected creation time %v, got %v", factory.Clock.Now(), course.CreatedAt)
	}
	if repo.created.ID != course.ID {
		t.Errorf("expected repository to receive the created course, got %+v", repo.created)
	}
}

func TestServiceFactoryDefaultsAreDeterministic(t *testing.T) {
	factory := NewServiceFactory()

	first := factory.IDGenerator.Next()
	second := factory.IDGenerator.Next()
	if first == second {
		t.Errorf("expected distinct ids, got %q twice", first)
	}
	if !factory.Clock.Now().Equal(ReferenceTime()) {
		t.Errorf("expected factory clock to start at the reference time")
	}
}
