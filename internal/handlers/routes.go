package handlers

import "github.com/go-chi/chi/v5"

// Register вешает команды и взаимодействия на роутер
func (h *TaskHandler) Register(r chi.Router) {
	r.Route("/guilds/{guildID}", func(r chi.Router) {
		r.Put("/checkin-channel", h.SetCheckinChannel) // PUT /guilds/{guildID}/checkin-channel

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)            // GET /guilds/{guildID}/tasks?archived=&filter=
			r.Post("/", h.AssignTask)          // POST /guilds/{guildID}/tasks
			r.Post("/cleanup", h.CleanupTasks) // POST /guilds/{guildID}/tasks/cleanup
		})

		r.Post("/archived-tasks/delete", h.DeleteArchivedTasks) // POST /guilds/{guildID}/archived-tasks/delete
	})

	r.Post("/interactions", h.Interaction)
	r.Get("/health", h.HealthCheck)
}
