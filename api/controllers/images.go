package controllers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/soltanba/shoplane-backend/api/responses"
	"github.com/soltanba/shoplane-backend/api/validators"
	imagesvc "github.com/soltanba/shoplane-backend/internal/images"
	"github.com/soltanba/shoplane-backend/internal/products"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/logger"
)

const multipartMemoryLimit = 8 << 20

// UploadProductImage stores a multipart image upload against a product.
func UploadProductImage(svc imagesvc.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}

		productID, err := parsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart payload"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field required"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload"))
			return
		}

		image, err := svc.Upload(r.Context(), imagesvc.UploadInput{
			ProductID:   productID,
			FileName:    validators.SanitizeString(header.Filename, 255),
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, products.ImageSummary{
			ID:          image.ID,
			FileName:    image.FileName,
			ContentType: image.ContentType,
			SizeBytes:   image.SizeBytes,
			DownloadURL: image.DownloadURL,
		})
	}
}

// DownloadProductImage streams the stored image bytes.
func DownloadProductImage(svc imagesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}

		imageID, err := parsePathID(r, "imageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		image, err := svc.Download(r.Context(), imageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", image.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(image.SizeBytes, 10))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(image.Data); err != nil && logg != nil {
			logg.Error(r.Context(), "write image response", err)
		}
	}
}

// DeleteProductImage removes a stored image.
func DeleteProductImage(svc imagesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}

		imageID, err := parsePathID(r, "imageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), imageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
