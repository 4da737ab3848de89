package tests

import (
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/repository"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/service"
)

func (s *IntegrationTestSuite) TestCreateProduct_PersistsAndReturnsID() {
	product, err := s.StockService.CreateProduct(s.Ctx, service.NewProduct{
		Name:          "Monitor",
		Description:   "27 inch",
		Price:         25000,
		StockQuantity: 4,
	})
	s.Require().NoError(err)
	s.Require().NotZero(product.ID)

	found, err := s.StockService.GetProduct(s.Ctx, product.ID)
	s.Require().NoError(err)
	s.Equal("Monitor", found.Name)
	s.Equal(int64(25000), found.Price)
	s.Equal(int32(4), found.StockQuantity)
}

func (s *IntegrationTestSuite) TestGetProduct_NotFound() {
	_, err := s.StockService.GetProduct(s.Ctx, 424242)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)
}

func (s *IntegrationTestSuite) TestListProducts() {
	s.seedProduct("Keyboard", 10)
	s.seedProduct("Mouse", 5)

	products, err := s.StockService.ListProducts(s.Ctx)
	s.Require().NoError(err)
	s.Len(products, 2)
}

func (s *IntegrationTestSuite) TestDeactivatedProduct_ReadsAsMissing() {
	keyboardID := s.seedProduct("Keyboard", 10)
	mouseID := s.seedProduct("Mouse", 5)
	s.deactivateProduct(keyboardID)

	_, err := s.StockService.GetProduct(s.Ctx, keyboardID)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)

	products, err := s.StockService.ListProducts(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	s.Equal(mouseID, products[0].ID)
}

func (s *IntegrationTestSuite) TestUpdateStock_SetsAbsoluteLevel() {
	keyboardID := s.seedProduct("Keyboard", 10)

	s.Require().NoError(s.StockService.UpdateStock(s.Ctx, keyboardID, 3))
	s.Equal(int32(3), s.stockOf(keyboardID))

	s.deactivateProduct(keyboardID)
	err := s.StockService.UpdateStock(s.Ctx, keyboardID, 50)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)
	s.Equal(int32(3), s.stockOf(keyboardID))
}
