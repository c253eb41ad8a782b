package services

import (
	"context"
	"time"

	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"gorm.io/gorm"
)

const upcomingWindow = 7 * 24 * time.Hour

type Dashboard struct {
	ProjectsByStatus []repository.StatusCount `json:"projectsByStatus"`
	ActiveProjects   int64                    `json:"activeProjects"`
	OpenTasks        int64                    `json:"openTasks"`
	LowStockItems    int                      `json:"lowStockItems"`
	UpcomingEvents   []models.CalendarEvent   `json:"upcomingEvents"`
}

type DashboardService interface {
	Summary(ctx context.Context, actor *models.User) (*Dashboard, error)
}

type dashboardService struct {
	db       *gorm.DB
	calendar CalendarService
}

func NewDashboardService(db *gorm.DB, calendar CalendarService) DashboardService {
	return &dashboardService{db: db, calendar: calendar}
}

func (s *dashboardService) Summary(ctx context.Context, actor *models.User) (*Dashboard, error) {
	counts, err := repository.NewProjectRepository(s.db).CountByStatus(ctx, ownerScope(actor))
	if err != nil {
		return nil, err
	}
	d := &Dashboard{ProjectsByStatus: counts}
	for _, c := range counts {
		switch models.ProjectStatus(c.Status) {
		case models.ProjectComplete, models.ProjectCancelled:
		default:
			d.ActiveProjects += c.Count
		}
	}

	if d.OpenTasks, err = repository.NewTaskRepository(s.db).CountOpenForAssignee(ctx, actor.ID); err != nil {
		return nil, err
	}

	low, err := repository.NewInventoryRepository(s.db).ListItems(ctx, repository.ItemFilter{LowStockOnly: true})
	if err != nil {
		return nil, err
	}
	d.LowStockItems = len(low)

	from := now()
	to := from.Add(upcomingWindow)
	if d.UpcomingEvents, err = s.calendar.List(ctx, actor, &EventQuery{From: &from, To: &to}); err != nil {
		return nil, err
	}
	return d, nil
}
