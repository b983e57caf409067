package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	svcErr "github.com/oggyb/matchchat/internal/errors"
)

type sendBody struct {
	ReceiverID string `json:"receiverId" validate:"required,numeric"`
	Content    string `json:"content" validate:"notblank,max=10"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sendBody{ReceiverID: "2", Content: "hi"}))

	err := Struct(sendBody{Content: "   "})
	assert.Equal(t, svcErr.KindInvalidArgument, svcErr.KindOf(err))
	assert.EqualError(t, err, "receiverId is required; content is required")

	err = Struct(sendBody{ReceiverID: "x", Content: "way too long for this"})
	assert.EqualError(t, err, "receiverId must be numeric; content must be at most 10 characters")
}
