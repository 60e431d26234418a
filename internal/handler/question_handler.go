package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepnest/mocktest-backend/internal/model"
	"github.com/prepnest/mocktest-backend/internal/response"
	"github.com/prepnest/mocktest-backend/internal/service"
	"github.com/prepnest/mocktest-backend/internal/validator"
)

type QuestionHandler struct {
	questionService *service.QuestionService
}

func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// GetSubjects godoc
// GET /api/v1/subjects
func (h *QuestionHandler) GetSubjects(c *gin.Context) {
	subjects, err := h.questionService.SubjectCodes(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if subjects == nil {
		subjects = []string{}
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// Ingest godoc
// POST /api/v1/questions
func (h *QuestionHandler) Ingest(c *gin.Context) {
	var req model.IngestQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.Ingest(c.Request.Context(), req)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrQuestionBankInvalid,
			map[string]string{"detail": err.Error()})
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"ingested": len(questions)})
}
