package usecase

import "context"

type SearchUC interface {
	Search(ctx context.Context, req *SearchReq) (*SearchRes, error)
	SearchByImage(ctx context.Context, req *SearchByImageReq) (*SearchRes, error)
}

type CatalogUC interface {
	Populate(ctx context.Context, req *PopulateReq) (*PopulateRes, error)
	Clear(ctx context.Context) error
	GetProduct(ctx context.Context, id string) (*ProductInfo, error)
	Stats(ctx context.Context) (*StatsRes, error)
	UploadImages(ctx context.Context, req *UploadImagesReq) (*UploadImagesRes, error)
}
