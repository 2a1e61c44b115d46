package handlers

import (
	"bytes"

	"studentrecords/internal/export"
	"studentrecords/internal/logger"
	"studentrecords/internal/models"
	"studentrecords/internal/services"

	"github.com/gofiber/fiber/v2"
)

// StudentHandler handles HTTP requests for students.
type StudentHandler struct {
	service  *services.StudentService
	exporter *export.Exporter
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(service *services.StudentService, exporter *export.Exporter) *StudentHandler {
	return &StudentHandler{
		service:  service,
		exporter: exporter,
	}
}

// RegisterRoutes registers the student routes behind the given middleware.
// Export routes come before /:id so they are not captured as an ID.
func (h *StudentHandler) RegisterRoutes(router fiber.Router, middleware ...fiber.Handler) {
	studentRoutes := router.Group("/students", middleware...)
	studentRoutes.Get("/", h.HandleListStudents)
	studentRoutes.Get("/export/csv", h.HandleExportCSV)
	studentRoutes.Get("/export/pdf", h.HandleExportPDF)
	studentRoutes.Get("/:id", h.HandleGetStudent)
	studentRoutes.Post("/", h.HandleCreateStudent)
	studentRoutes.Put("/:id/restore", h.HandleRestoreStudent)
	studentRoutes.Put("/:id", h.HandleUpdateStudent)
	studentRoutes.Delete("/:id/permanent", h.HandlePermanentDeleteStudent)
	studentRoutes.Delete("/:id", h.HandleDeleteStudent)
}

func showDeleted(c *fiber.Ctx) bool {
	return c.Query("showDeleted") == "true"
}

// HandleListStudents returns one page of students.
func (h *StudentHandler) HandleListStudents(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), services.ListParams{
		Page:        c.QueryInt("page", 1),
		Limit:       c.QueryInt("limit", 0),
		Search:      c.Query("search"),
		ShowDeleted: showDeleted(c),
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(Response{
		Success:    true,
		Data:       page.Students,
		Pagination: &page.Pagination,
	})
}

// HandleGetStudent returns a single student, deleted or not.
func (h *StudentHandler) HandleGetStudent(c *fiber.Ctx) error {
	student, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, student, "")
}

// HandleCreateStudent creates a new student.
func (h *StudentHandler) HandleCreateStudent(c *fiber.Ctx) error {
	var req models.CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug().Err(err).Msg("invalid create student body")
		return failWith(c, fiber.StatusBadRequest, "Invalid request body")
	}

	student, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusCreated, student, "Student created successfully")
}

// HandleUpdateStudent applies a partial update to a student.
func (h *StudentHandler) HandleUpdateStudent(c *fiber.Ctx) error {
	var req models.UpdateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug().Err(err).Msg("invalid update student body")
		return failWith(c, fiber.StatusBadRequest, "Invalid request body")
	}

	student, err := h.service.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, student, "Student updated successfully")
}

// HandleDeleteStudent soft-deletes a student.
func (h *StudentHandler) HandleDeleteStudent(c *fiber.Ctx) error {
	if _, err := h.service.SoftDelete(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, nil, "Student deleted successfully")
}

// HandleRestoreStudent brings a soft-deleted student back.
func (h *StudentHandler) HandleRestoreStudent(c *fiber.Ctx) error {
	student, err := h.service.Restore(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, student, "Student restored successfully")
}

// HandlePermanentDeleteStudent removes a student for good.
func (h *StudentHandler) HandlePermanentDeleteStudent(c *fiber.Ctx) error {
	if err := h.service.PermanentDelete(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, nil, "Student permanently deleted")
}

// HandleExportCSV sends the selected students as students.csv.
func (h *StudentHandler) HandleExportCSV(c *fiber.Ctx) error {
	students, err := h.service.ExportSelection(c.UserContext(), showDeleted(c))
	if err != nil {
		return fail(c, err)
	}

	var buf bytes.Buffer
	if err := h.exporter.CSV(&buf, students); err != nil {
		return fail(c, err)
	}

	c.Attachment("students.csv")
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(buf.Bytes())
}

// HandleExportPDF sends the selected students as students.pdf.
func (h *StudentHandler) HandleExportPDF(c *fiber.Ctx) error {
	students, err := h.service.ExportSelection(c.UserContext(), showDeleted(c))
	if err != nil {
		return fail(c, err)
	}

	var buf bytes.Buffer
	if err := h.exporter.PDF(&buf, students); err != nil {
		return fail(c, err)
	}

	c.Attachment("students.pdf")
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(buf.Bytes())
}
