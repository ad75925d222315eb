// Package classify submits photos to the remote classification service.
//
// The service exposes a single multipart endpoint that accepts a JPEG and
// answers with a JSON verdict document. This package only transports the
// image and decodes the document; interpreting it is the job of package
// verdict.
//
//	client, _ := classify.NewClient(
//	    classify.WithBaseURL("https://192.168.0.237:8000"),
//	    classify.WithInsecureTLS(true),
//	)
//	defer client.Close()
//
//	resp, err := client.Classify(ctx, &classify.Request{
//	    Image:    jpegBytes,
//	    Filename: "photo.jpg",
//	})
package classify

import (
	"context"

	"github.com/teslashibe/photocheck/pkg/verdict"
)

// Classifier is the interface to the classification service.
type Classifier interface {
	// Classify uploads one JPEG and returns the decoded verdict document.
	Classify(ctx context.Context, req *Request) (*Response, error)

	// Health checks that the service answers.
	Health(ctx context.Context) error

	// Close releases any resources held by the classifier.
	Close() error
}

// Request is one image submission.
type Request struct {
	// Image is the JPEG payload.
	Image []byte

	// Filename is sent with the multipart part ("photo.jpg", "frame.jpg").
	Filename string

	// RequestID correlates logs; generated when empty.
	RequestID string
}

// Response is a decoded verdict.
type Response struct {
	// Document is the raw verdict object.
	Document verdict.Document

	// RequestID is the ID sent with the request.
	RequestID string

	// StatusCode is the HTTP status returned by the service.
	StatusCode int

	// LatencyMs is the round trip time in milliseconds.
	LatencyMs int64
}
