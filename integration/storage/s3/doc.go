// Package s3 stores binary payloads in Amazon S3 or any S3-compatible
// service (MinIO, DigitalOcean Spaces, Wasabi).
//
// The package wraps the AWS SDK v2 with a narrow Upload/Download/Delete
// surface and classifies SDK errors into package sentinels so callers can
// branch with errors.Is.
//
// Basic usage:
//
//	cfg := s3.Config{
//		Bucket: "daybook-audio",
//		Region: "us-east-1",
//	}
//
//	store, err := s3.New(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := store.Upload(ctx, "audio/"+id.String(), "audio/mpeg", file); err != nil {
//		log.Fatal(err)
//	}
//
//	obj, err := store.Download(ctx, "audio/"+id.String())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer obj.Body.Close()
//
// For S3-compatible services set Endpoint and usually ForcePathStyle:
//
//	cfg := s3.Config{
//		Bucket:         "daybook-audio",
//		Region:         "us-east-1",
//		Endpoint:       "https://minio.internal:9000",
//		ForcePathStyle: true,
//	}
package s3
