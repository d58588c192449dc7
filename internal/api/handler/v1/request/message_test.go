package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendMessageRequest_Validate(t *testing.T) {
	req := require.New(t)

	req.NoError((&SendMessageRequest{TicketID: 7, Content: "hello"}).Validate())

	req.Error((&SendMessageRequest{TicketID: 0, Content: "hello"}).Validate())
	req.Error((&SendMessageRequest{TicketID: 7, Content: ""}).Validate())
	req.Error((&SendMessageRequest{TicketID: 7, Content: strings.Repeat("x", 4001)}).Validate())
}
