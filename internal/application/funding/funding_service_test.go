package funding

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/funding"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProviderRepository is a mock implementation of funding.InsuranceProviderRepository
type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*funding.InsuranceProvider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.InsuranceProvider), args.Error(1)
}

func (m *MockProviderRepository) FindByName(ctx context.Context, name string) (*funding.InsuranceProvider, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.InsuranceProvider), args.Error(1)
}

func (m *MockProviderRepository) FindAll(ctx context.Context, filter funding.ProviderFilter) ([]funding.InsuranceProvider, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]funding.InsuranceProvider), args.Error(1)
}

func (m *MockProviderRepository) Save(ctx context.Context, provider *funding.InsuranceProvider) error {
	args := m.Called(ctx, provider)
	return args.Error(0)
}

func (m *MockProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProviderRepository) Count(ctx context.Context, filter funding.ProviderFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProviderRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockProviderRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockProgramRepository is a mock implementation of funding.FundingProgramRepository
type MockProgramRepository struct {
	mock.Mock
}

func (m *MockProgramRepository) FindByID(ctx context.Context, id uuid.UUID) (*funding.FundingProgram, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.FundingProgram), args.Error(1)
}

func (m *MockProgramRepository) FindByName(ctx context.Context, name string) (*funding.FundingProgram, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.FundingProgram), args.Error(1)
}

func (m *MockProgramRepository) FindAll(ctx context.Context, filter funding.ProgramFilter) ([]funding.FundingProgram, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]funding.FundingProgram), args.Error(1)
}

func (m *MockProgramRepository) Save(ctx context.Context, program *funding.FundingProgram) error {
	args := m.Called(ctx, program)
	return args.Error(0)
}

func (m *MockProgramRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProgramRepository) Count(ctx context.Context, filter funding.ProgramFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProgramRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgramRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func newFundingServiceFixture() (*FundingService, *MockProviderRepository, *MockProgramRepository) {
	providerRepo := new(MockProviderRepository)
	programRepo := new(MockProgramRepository)
	return NewFundingService(providerRepo, programRepo), providerRepo, programRepo
}

func fixtureProvider(t *testing.T) *funding.InsuranceProvider {
	t.Helper()
	p, err := funding.NewInsuranceProvider("Blue Shield", "claims@blueshield.example", "555-0100", "", uuid.New())
	require.NoError(t, err)
	return p
}

func TestFundingServiceCreateProvider(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("creates provider", func(t *testing.T) {
		svc, providerRepo, _ := newFundingServiceFixture()
		providerRepo.On("ExistsByName", ctx, "Blue Shield").Return(false, nil)
		providerRepo.On("Save", ctx, mock.Anything).Return(nil)

		resp, err := svc.CreateProvider(ctx, CreateProviderRequest{
			Name:         "Blue Shield",
			ContactEmail: "claims@blueshield.example",
		}, actorID)
		require.NoError(t, err)
		assert.Equal(t, "Blue Shield", resp.Name)
		assert.True(t, resp.Active)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		svc, providerRepo, _ := newFundingServiceFixture()
		providerRepo.On("ExistsByName", ctx, "Blue Shield").Return(true, nil)

		_, err := svc.CreateProvider(ctx, CreateProviderRequest{Name: "Blue Shield"}, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeAlreadyExists, domainErr.Code)
	})

	t.Run("rejects invalid contact email", func(t *testing.T) {
		svc, _, _ := newFundingServiceFixture()
		_, err := svc.CreateProvider(ctx, CreateProviderRequest{
			Name:         "Blue Shield",
			ContactEmail: "not-an-email",
		}, actorID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeValidation, domainErr.Code)
	})
}

func TestFundingServiceDeleteProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks deletion while referenced", func(t *testing.T) {
		svc, providerRepo, _ := newFundingServiceFixture()
		provider := fixtureProvider(t)

		providerRepo.On("FindByID", ctx, provider.ID).Return(provider, nil)
		providerRepo.On("CountReferences", ctx, provider.ID).Return(int64(3), nil)

		err := svc.DeleteProvider(ctx, provider.ID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
		providerRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes unreferenced provider", func(t *testing.T) {
		svc, providerRepo, _ := newFundingServiceFixture()
		provider := fixtureProvider(t)

		providerRepo.On("FindByID", ctx, provider.ID).Return(provider, nil)
		providerRepo.On("CountReferences", ctx, provider.ID).Return(int64(0), nil)
		providerRepo.On("Delete", ctx, provider.ID).Return(nil)

		require.NoError(t, svc.DeleteProvider(ctx, provider.ID))
		providerRepo.AssertExpectations(t)
	})
}

func TestFundingServicePrograms(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("creates program linked to a provider", func(t *testing.T) {
		svc, providerRepo, programRepo := newFundingServiceFixture()
		provider := fixtureProvider(t)

		providerRepo.On("FindByID", ctx, provider.ID).Return(provider, nil)
		programRepo.On("ExistsByName", ctx, "Autism Funding Program").Return(false, nil)
		programRepo.On("Save", ctx, mock.Anything).Return(nil)

		resp, err := svc.CreateProgram(ctx, CreateProgramRequest{
			Name:       "Autism Funding Program",
			ProviderID: &provider.ID,
		}, actorID)
		require.NoError(t, err)
		require.NotNil(t, resp.ProviderID)
		assert.Equal(t, provider.ID, *resp.ProviderID)
	})

	t.Run("rejects program with unknown provider", func(t *testing.T) {
		svc, providerRepo, programRepo := newFundingServiceFixture()
		providerID := uuid.New()
		providerRepo.On("FindByID", ctx, providerID).Return(nil, nil)

		_, err := svc.CreateProgram(ctx, CreateProgramRequest{
			Name:       "Autism Funding Program",
			ProviderID: &providerID,
		}, actorID)
		require.Error(t, err)
		programRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unlinks provider via nil UUID", func(t *testing.T) {
		svc, _, programRepo := newFundingServiceFixture()
		provider := fixtureProvider(t)
		program, err := funding.NewFundingProgram("Autism Funding Program", "", &provider.ID, uuid.New())
		require.NoError(t, err)

		programRepo.On("FindByID", ctx, program.ID).Return(program, nil)
		programRepo.On("Save", ctx, program).Return(nil)

		nilID := uuid.Nil
		resp, err := svc.UpdateProgram(ctx, program.ID, UpdateProgramRequest{ProviderID: &nilID})
		require.NoError(t, err)
		assert.Nil(t, resp.ProviderID)
	})

	t.Run("blocks deleting a referenced program", func(t *testing.T) {
		svc, _, programRepo := newFundingServiceFixture()
		program, err := funding.NewFundingProgram("Autism Funding Program", "", nil, uuid.New())
		require.NoError(t, err)

		programRepo.On("FindByID", ctx, program.ID).Return(program, nil)
		programRepo.On("CountReferences", ctx, program.ID).Return(int64(4), nil)

		err = svc.DeleteProgram(ctx, program.ID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})
}
