package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/voltworks/portal/internal/api/handlers"
	mw "github.com/voltworks/portal/internal/api/middleware"
)

type Dependencies struct {
	Authenticator  mw.Authenticator
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Projects       *handlers.ProjectsHandler
	Milestones     *handlers.MilestonesHandler
	Tasks          *handlers.TasksHandler
	Comments       *handlers.CommentsHandler
	Communications *handlers.CommunicationsHandler
	Files          *handlers.FilesHandler
	Calendar       *handlers.CalendarHandler
	JobTypes       *handlers.JobTypesHandler
	Inventory      *handlers.InventoryHandler
	Packages       *handlers.PackagesHandler
	Templates      *handlers.TemplatesHandler
	Backup         *handlers.BackupHandler
	SharePoint     *handlers.SharePointHandler
	Places         *handlers.PlacesHandler
	Dashboard      *handlers.DashboardHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.AllowedOrigins...))
	r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	r.Use(chimid.Compress(5, "application/json", "text/csv", "text/plain"))

	// Health endpoints
	r.Get("/healthz", dep.Health.Liveness)
	r.Get("/readyz", dep.Health.Readiness)

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	authn := mw.Authenticate(dep.Authenticator)

	r.With(authn).Get("/uploads/*", dep.Files.ServeUpload)

	r.Route("/api", func(api chi.Router) {
		// Auth routes (public)
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", dep.Auth.Login)
			ar.Post("/logout", dep.Auth.Logout)
			ar.Get("/microsoft/login", dep.Auth.MicrosoftLogin)
			ar.Get("/callback/microsoft", dep.Auth.MicrosoftCallback)
			ar.With(authn).Get("/me", dep.Auth.Me)
		})

		// Secret-gated, no session
		api.Post("/admin/backup/scheduled", dep.Backup.Scheduled)

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(authn)

			protected.Get("/dashboard", dep.Dashboard.Get)

			protected.Route("/users", func(ur chi.Router) {
				ur.Get("/", dep.Users.Assignable)
				ur.Get("/me/photo", dep.Users.Photo)
			})

			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.Projects.List)
				pr.Post("/", dep.Projects.Create)
				pr.Route("/{id}", func(p chi.Router) {
					p.Get("/", dep.Projects.Get)
					p.Patch("/", dep.Projects.Update)
					p.Put("/", dep.Projects.Update)
					p.Delete("/", dep.Projects.Delete)
					p.Get("/status-history", dep.Projects.StatusHistory)
					p.Get("/milestones", dep.Milestones.List)
					p.Post("/milestones", dep.Milestones.Create)
					p.Get("/communications", dep.Communications.List)
					p.Post("/communications", dep.Communications.Create)
					p.Get("/files", dep.Files.ListForProject)
					p.Post("/files", dep.Files.UploadToProject)
				})
			})

			protected.Route("/milestones/{id}", func(m chi.Router) {
				m.Get("/", dep.Milestones.Get)
				m.Patch("/", dep.Milestones.Update)
				m.Put("/", dep.Milestones.Update)
				m.Delete("/", dep.Milestones.Delete)
				m.Get("/tasks", dep.Tasks.List)
				m.Post("/tasks", dep.Tasks.Create)
				m.Get("/comments", dep.Comments.ListForMilestone)
				m.Post("/comments", dep.Comments.AddToMilestone)
				m.Get("/files", dep.Files.ListForMilestone)
				m.Post("/files", dep.Files.UploadToMilestone)
			})

			protected.Get("/tasks/mine", dep.Tasks.Mine)
			protected.Route("/tasks/{id}", func(t chi.Router) {
				t.Get("/", dep.Tasks.Get)
				t.Patch("/", dep.Tasks.Update)
				t.Put("/", dep.Tasks.Update)
				t.Delete("/", dep.Tasks.Delete)
				t.Get("/comments", dep.Comments.ListForTask)
				t.Post("/comments", dep.Comments.AddToTask)
				t.Get("/files", dep.Files.ListForTask)
				t.Post("/files", dep.Files.UploadToTask)
			})

			protected.Delete("/comments/{id}", dep.Comments.Delete)

			protected.Route("/communications/{id}", func(c chi.Router) {
				c.Patch("/", dep.Communications.Update)
				c.Put("/", dep.Communications.Update)
				c.Delete("/", dep.Communications.Delete)
			})

			protected.Route("/files/{id}", func(f chi.Router) {
				f.Get("/", dep.Files.Download)
				f.Delete("/", dep.Files.Delete)
			})

			protected.Route("/calendar", func(cr chi.Router) {
				cr.Get("/", dep.Calendar.List)
				cr.Post("/", dep.Calendar.Create)
				cr.Get("/{id}", dep.Calendar.Get)
				cr.Patch("/{id}", dep.Calendar.Update)
				cr.Put("/{id}", dep.Calendar.Update)
				cr.Delete("/{id}", dep.Calendar.Delete)
			})

			protected.Route("/job-types", func(jr chi.Router) {
				jr.Get("/", dep.JobTypes.List)
				jr.With(mw.RequireAdmin).Post("/", dep.JobTypes.Create)
				jr.With(mw.RequireAdmin).Patch("/{id}", dep.JobTypes.Update)
				jr.With(mw.RequireAdmin).Delete("/{id}", dep.JobTypes.Delete)
			})

			protected.Route("/inventory", func(ir chi.Router) {
				ir.Get("/low-stock", dep.Inventory.LowStock)
				ir.Get("/export", dep.Inventory.ExportCSV)
				ir.With(mw.RequireAdmin).Post("/import", dep.Inventory.ImportCSV)

				ir.Get("/items", dep.Inventory.ListItems)
				ir.Post("/items", dep.Inventory.CreateItem)
				ir.Route("/items/{id}", func(it chi.Router) {
					it.Get("/", dep.Inventory.GetItem)
					it.Patch("/", dep.Inventory.UpdateItem)
					it.Put("/", dep.Inventory.UpdateItem)
					it.Delete("/", dep.Inventory.DeleteItem)
					it.Get("/units", dep.Inventory.ListUnits)
					it.Post("/units", dep.Inventory.CreateUnit)
					it.Get("/label.png", dep.Inventory.ItemLabel)
				})
				ir.Route("/units/{id}", func(u chi.Router) {
					u.Get("/", dep.Inventory.GetUnit)
					u.Patch("/", dep.Inventory.UpdateUnit)
					u.Delete("/", dep.Inventory.DeleteUnit)
					u.Get("/label.png", dep.Inventory.UnitLabel)
				})

				ir.Get("/assignments", dep.Inventory.ListAssignments)
				ir.Post("/assignments", dep.Inventory.Assign)
				ir.Patch("/assignments/{id}", dep.Inventory.UpdateAssignment)
				ir.Delete("/assignments/{id}", dep.Inventory.ReturnAssignment)

				ir.Route("/packages", func(pk chi.Router) {
					pk.Get("/", dep.Packages.List)
					pk.Post("/", dep.Packages.Create)
					pk.Get("/{id}", dep.Packages.Get)
					pk.Patch("/{id}", dep.Packages.Update)
					pk.Put("/{id}", dep.Packages.Update)
					pk.Delete("/{id}", dep.Packages.Delete)
					pk.Post("/{id}/apply", dep.Packages.Apply)
				})
			})

			protected.Route("/templates", func(tr chi.Router) {
				tr.Get("/", dep.Templates.List)
				tr.Get("/export", dep.Templates.ExportAll)
				tr.Get("/{id}", dep.Templates.Get)
				tr.Get("/{id}/export", dep.Templates.Export)
				tr.Group(func(admin chi.Router) {
					admin.Use(mw.RequireAdmin)
					admin.Post("/", dep.Templates.Create)
					admin.Post("/import", dep.Templates.Import)
					admin.Patch("/{id}", dep.Templates.Update)
					admin.Put("/{id}", dep.Templates.Update)
					admin.Delete("/{id}", dep.Templates.Delete)
				})
			})

			protected.Route("/places", func(pl chi.Router) {
				pl.Get("/autocomplete", dep.Places.Autocomplete)
				pl.Get("/details", dep.Places.Details)
			})

			// Admin console
			protected.Route("/admin", func(ar chi.Router) {
				ar.Use(mw.RequireAdmin)

				ar.Get("/users", dep.Users.List)
				ar.Post("/users", dep.Users.Create)
				ar.Patch("/users/{id}", dep.Users.Update)
				ar.Put("/users/{id}", dep.Users.Update)
				ar.Delete("/users/{id}", dep.Users.Delete)

				ar.Get("/backup", dep.Backup.Backup)
				ar.Post("/restore", dep.Backup.Restore)
				ar.Get("/backups", dep.Backup.List)
				ar.Get("/backups/{name}", dep.Backup.Download)
				ar.Delete("/backups/{name}", dep.Backup.Delete)

				ar.Get("/backup/schedule", dep.Backup.GetSchedule)
				ar.Put("/backup/schedule", dep.Backup.PutSchedule)
				ar.Delete("/backup/schedule", dep.Backup.DeleteSchedule)

				ar.Get("/sharepoint/test", dep.SharePoint.Test)
			})
		})
	})

	return r
}
